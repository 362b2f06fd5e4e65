// Command gsadmin is the operator tool for the portal: approving officer
// accounts, suspending users and preparing the database.
package main

import (
	"fmt"
	"os"
)

func main() {
	a := &admin{}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
