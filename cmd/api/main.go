package main

import "github.com/securedocs/backend/cmd/api/cmd"

func main() {
	cmd.Execute()
}
