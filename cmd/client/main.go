package main

import (
	"tarun-kavipurapu/msgcenter/client"
	"tarun-kavipurapu/msgcenter/pkg/config"
	"tarun-kavipurapu/msgcenter/pkg/logger"
)

func main() {

	c := client.NewClient(config.Default().ServerAddr)
	if err := c.Connect(); err != nil {
		logger.Sugar.Fatal(err)
	}
	defer c.Close()

	if _, err := c.SendBurst(client.DefaultPrefix, 30000); err != nil {
		logger.Sugar.Error("Error in burst ", err)
	}
}
