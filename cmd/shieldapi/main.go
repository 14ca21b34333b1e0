package main

import "github.com/voip8pbx/ShieldHire-sub000/cmd/shieldapi/cmd"

func main() {
	cmd.Execute()
}
