package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/uartcheck/pkg/telemetry"
	"github.com/robotalks/uartcheck/pkg/telemetry/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/uartcheck/"
)

func init() {
	if val := os.Getenv("UARTCHECK_MQTT_URL"); val != "" {
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
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	q.Sub("+/"+mqtt.TopicMeta, mqtt.Handler(func(topic string, payload []byte) {
		if len(payload) == 0 {
			log.Printf("%s: gone", topic)
			return
		}
		log.Printf("%s: %s", topic, string(payload))
	}))
	mqtt.Watch(q, func(deviceID string, r *telemetry.Report, err error) {
		if err != nil {
			log.Printf("%s: bad report: %v", deviceID, err)
			return
		}
		log.Println(r.String())
	})
	<-(chan struct{})(nil)
}
