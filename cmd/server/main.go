package main

import "github.com/placxborcx/Onboarding-MainPage/cmd/server/cmd"

func main() {
	cmd.Execute()
}
