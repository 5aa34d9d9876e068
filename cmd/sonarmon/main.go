package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/maxsonar.go/pkg/publish/mqtt"
	"github.com/robotalks/maxsonar.go/pkg/reading"
)

var (
	mqttURL  = "mqtt://localhost:1883/"
	sensorID = "+"
)

func init() {
	if val := os.Getenv("MAXSONAR_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&sensorID, "id", sensorID, "Sensor ID to monitor, + for all.")
}

func decode(payload []byte) (*reading.Reading, error) {
	r, err := reading.FormatJSON.Decode(payload)
	if err == nil {
		return r, nil
	}
	return reading.FormatProto.Decode(payload)
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}

	q.Sub(mqtt.SensorTopic(sensorID, "#"), mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/meta"):
			if len(payload) == 0 {
				log.Printf("%s: offline", topic)
				return
			}
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, "/status"):
			log.Printf("%s: %s", topic, string(payload))
		case strings.HasSuffix(topic, "/distance"):
			r, err := decode(payload)
			if err != nil {
				log.Printf("%s: bad reading: %v", topic, err)
				return
			}
			if !r.OK() {
				log.Printf("%s: [%s] error: %s", r.SensorID, r.Device, r.Error)
				return
			}
			log.Printf("%s: [%s] %d%s at %s", r.SensorID, r.Device, r.Distance, r.Unit, r.At.Format("15:04:05.000"))
		default:
			log.Printf("%s: %d bytes", topic, len(payload))
		}
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
