package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/golang/glog"

	fx "github.com/robotalks/ddsbox/pkg/framework"
	"github.com/robotalks/ddsbox/pkg/l1/env/box"
)

func init() {
	box.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := box.NewConfig()
	if err != nil {
		glog.Exitf("load config error: %v", err)
	}
	env := conf.MustNewEnv()
	glog.Infof("box %s started", env.Info.Ref.Name())

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("loop", fx.NewLoop().Add(env)))
	err = runner.Wait()
	if closeErr := env.Close(); closeErr != nil {
		glog.Warningf("close error: %v", closeErr)
	}
	if err != nil {
		glog.Exitf("box stopped: %v", err)
	}
	glog.Info("box stopped")
}
