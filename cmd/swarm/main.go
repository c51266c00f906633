// Command swarm dispatches a dependency graph of coding tasks across a pool
// of claude and codex workers.
package main

func main() {
	Execute()
}
