// Package model defines the domain data structures shared across the app:
// fetch tasks, their lifecycle states, the per-task control flag, and the
// structured outcome of one executor run.
package model
