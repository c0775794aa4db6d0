package main

import "github.com/masmgr/repohistory-go/cmd"

func main() {
	cmd.Run()
}
