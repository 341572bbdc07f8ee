// Command formguard validates back-office payloads from the terminal and
// serves the validation engine over HTTP or MCP.
package main

func main() {
	Execute()
}
