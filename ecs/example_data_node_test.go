package ecs_test

import (
	"fmt"
	"strings"

	"github.com/plus3/archstore/ecs"
)

// ExampleEntityStore_CreateFromDataNodes imports a small hierarchy from YAML and
// exports it again. Children are referenced by pid; a child without a record of
// its own is created empty.
func ExampleEntityStore_CreateFromDataNodes() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Name](registry)
	store := ecs.NewEntityStore(registry, nil)

	nodes, err := ecs.ReadDataNodes(strings.NewReader(`
- pid: 1
  children: [2, 3]
  components:
    Name: {value: root}
- pid: 2
  components:
    Position: {x: 5, y: 6}
`))
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := store.CreateFromDataNodes(nodes); err != nil {
		fmt.Println(err)
		return
	}

	root, _ := store.GetEntityByPid(1)
	fmt.Println("children:", root.ChildIds())

	out, _ := store.ToDataNodes()
	for _, dn := range out {
		keys := make([]string, 0, len(dn.Components))
		for key := range dn.Components {
			keys = append(keys, key)
		}
		fmt.Printf("pid %d: components %v children %v\n", dn.Pid, keys, dn.Children)
	}
	pos := ecs.GetComponent[Position](store.GetEntityById(2))
	fmt.Printf("position: (%.0f, %.0f)\n", pos.X, pos.Y)

	// Output:
	// children: [2 3]
	// pid 1: components [Name] children [2 3]
	// pid 2: components [Position] children []
	// pid 3: components [] children []
	// position: (5, 6)
}
