package main

import "github.com/oshokin/face-sentry/cmd/face-sentry/cmd"

func main() {
	cmd.Execute()
}
