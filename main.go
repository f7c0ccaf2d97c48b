// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"os/user"

	"deopt/repl"
)

func main() {
	currentUser, err := user.Current()
	if err != nil {
		fmt.Printf("Error getting current user: %v\n", err)
		return
	}

	fmt.Printf("Welcome to the deopt REPL, %s!\n", currentUser.Username)
	fmt.Println("Type a function; it is expanded as soon as its closing brace is read.")
	repl.Start(os.Stdin, os.Stdout)
}
