package ecs

// System is run once per frame by a Scheduler. Exported Query and Singleton
// fields are bound to the scheduler's store on registration; any other fields
// keep their state between frames.
type System interface {
	Execute(frame *UpdateFrame)
}
