package main

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/phoreproject/sentinel/cfg"
	"github.com/phoreproject/sentinel/node"
	"github.com/phoreproject/sentinel/utils"
	logger "github.com/sirupsen/logrus"
	metrics "github.com/tevjef/go-runtime-metrics"
)

func main() {
	nodeOptions := node.DefaultOptions()
	globalConfig := cfg.GlobalOptions{LogLevel: "info"}
	err := cfg.LoadFlags(&nodeOptions, &globalConfig)
	if err != nil {
		logger.Fatal(err)
	}

	lvl, err := logger.ParseLevel(globalConfig.LogLevel)
	if err != nil {
		logger.Fatal(err)
	}
	logger.SetLevel(lvl)

	logger.StandardLogger().SetFormatter(&logger.TextFormatter{
		ForceColors: globalConfig.ForceColors,
	})

	utils.CheckNTP(nodeOptions.NTPServer)

	changed, newLimit, err := utils.ManageFdLimit()
	if err != nil {
		logger.Fatal(err)
	}
	if changed {
		logger.Infof("changed open file limit to: %d", newLimit)
	}

	if nodeOptions.Metrics {
		err = metrics.RunCollector(metrics.DefaultConfig)
		if err != nil {
			logger.Warn(err)
		}
	}

	if nodeOptions.SentryDSN != "" {
		err = sentry.Init(sentry.ClientOptions{
			Dsn: nodeOptions.SentryDSN,
		})
		if err != nil {
			logger.Fatalf("sentry.Init: %s", err)
		}

		defer func() {
			err := recover()

			if err != nil {
				sentry.CurrentHub().Recover(err)
				sentry.Flush(time.Second * 5)
				panic(err)
			}
		}()
	}

	config, err := node.ConfigFromOptions(nodeOptions)
	if err != nil {
		logger.Fatal(err)
	}

	a, err := node.NewNodeApp(config)
	if err != nil {
		logger.Fatal(err)
	}

	err = a.Run()
	if err != nil {
		logger.Fatal(err)
	}
}
