// Command redash-aws synthesizes and operates the CloudFormation stack that
// runs Redash on ECS Fargate.
//
// Usage:
//
//	redash-aws build                  Generate the CloudFormation template
//	redash-aws lint                   Check the template against deployment policy
//	redash-aws run-create-db --wait   Create the Redash tables
//	redash-aws version                Show version
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError ends the command with a specific exit code once its result has
// already been printed.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
