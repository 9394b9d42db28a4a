package main

import (
	"tarun-kavipurapu/msgcenter/pkg/config"
	"tarun-kavipurapu/msgcenter/pkg/logger"
	"tarun-kavipurapu/msgcenter/server"
)

func main() {

	srv := server.NewServer(config.Default())

	err := srv.Start()

	if err != nil {
		logger.Sugar.Error("Error starting server ", err)
	}

}
