package main

import (
	"fmt"
	"log"

	"github.com/common-nighthawk/go-figure"

	"github.com/aussiebroadwan/sessionauth/internal/auth/app"
)

func main() {
	displayAppname("session-auth")

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
