package main

import (
	"flag"
	"log"

	"github.com/robotalks/maxsonar.go/pkg/env"
	"github.com/robotalks/maxsonar.go/pkg/framework"

	_ "github.com/robotalks/maxsonar.go/pkg/gpio/all"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()

	e := env.MustLoadConfig().MustNewEnv()
	defer e.Close()
	err := framework.NewRunner().HandleSignals().Go(e.Runnables()...).Wait()
	if err != nil {
		log.Println(err)
	}
}
