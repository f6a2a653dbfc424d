// Package node assembles one addressable agent: a role, its dialogue state
// and calendar, and the planner, scheduler and router acting on them. Agents
// are wired to the bus at registration time through the Attachable contract.
package node
