package main

import (
	"flag"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/robotalks/ddsbox/pkg/l1/comm/mqtt"
	env "github.com/robotalks/ddsbox/pkg/l1/env/connector"
	"github.com/robotalks/ddsbox/pkg/l1/msgs"
)

var (
	mqttURL = env.DefaultRegistryURL
)

func init() {
	if val := os.Getenv("DDSBOX_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.MetaTopic):
			log.Printf("%s: %s", topic, string(payload))
			return
		case strings.HasSuffix(topic, "/"+mqtt.InTopic), strings.HasSuffix(topic, "/"+mqtt.OutTopic):
			log.Printf("%s: %q", topic, string(payload))
			return
		}
		msg, err := msgs.DecodeMessage(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		if ev, ok := msg.(*msgs.CommandEvent); ok && ev.Transcript != "" {
			for _, line := range strings.Split(strings.TrimRight(ev.Transcript, "\n"), "\n") {
				log.Printf("%s: %s", topic, line)
			}
		}
		log.Printf("%s: [%s] %s", topic,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg.String())
	}))
	if err = q.ConnectAndWait(); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
