package main

import (
	"github.com/glittrfi/glittr-go/infrastructure/config"
	"github.com/glittrfi/glittr-go/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.GLTR)

func initLog(appFlags *config.AppFlags) error {
	err := logger.SetLogLevels(appFlags.LogLevel)
	if err != nil {
		return err
	}
	stdoutLevel := logger.LevelOff
	if appFlags.LogStdout {
		stdoutLevel = logger.LevelTrace
	}
	return logger.InitLog(appFlags.LogFile(), stdoutLevel)
}
