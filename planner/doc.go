// Package planner implements the project lifecycle workflow: propose an
// objective, suggest candidate participants, await confirmation, generate a
// stepwise plan and emit tasks per step through a structured function-call
// contract. Reasoner output is never trusted; every stage validates and falls
// back to documented defaults.
package planner
