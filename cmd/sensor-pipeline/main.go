// Command sensor-pipeline wires concrete sensor sources and the Redis
// mirror sink around the core stream-buffer/frame-parser/worker/queue
// engine, and runs until SIGINT/SIGTERM.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/fakesource"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/manager"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/sink"
	"github.com/kfirwolf/sensor-pipeline-mpsc/pkg/uartsource"
)

var (
	queueCapacity    = flag.Int("queue-capacity", 256, "global queue capacity")
	streamBufferSize = flag.Int("stream-buffer-size", 256, "per-sensor stream buffer capacity")

	uartDevice = flag.String("uart-device", "", "serial device path for a UART sensor (empty: use a fake demo sensor instead)")
	uartBaud   = flag.Int("uart-baud", 115200, "serial baud rate")

	redisAddr   = flag.String("redis-addr", "localhost:6379", "Redis server address")
	redisPass   = flag.String("redis-pass", "", "Redis password")
	redisDB     = flag.Int("redis-db", 0, "Redis database number")
	redisPrefix = flag.String("redis-key-prefix", "sensor-pipeline:measurements", "Redis key prefix for mirrored measurements")
	redisChan   = flag.String("redis-channel", "sensor-pipeline:stream", "Redis pub/sub channel for mirrored measurements")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting sensor pipeline")

	mgr, err := manager.New(*queueCapacity)
	if err != nil {
		log.Fatalf("Failed to create sensor manager: %v", err)
	}

	if *uartDevice != "" {
		log.Printf("Adding UART sensor on %s at %d baud", *uartDevice, *uartBaud)
		if _, err := mgr.AddUART(uartsource.Config{
			Device:   *uartDevice,
			BaudRate: *uartBaud,
		}, *streamBufferSize); err != nil {
			log.Fatalf("Failed to add UART sensor: %v", err)
		}
	} else {
		log.Printf("No UART device configured; adding a fake demo sensor")
		mgr.AddFake(fakesource.New(demoPayload()), *streamBufferSize)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     *redisAddr,
		Password: *redisPass,
		DB:       *redisDB,
	})
	defer redisClient.Close()

	mirror, err := sink.New(mgr.Queue(), []sink.Shard{{Name: "primary", Client: redisClient}}, *redisPrefix, *redisChan)
	if err != nil {
		log.Fatalf("Failed to create Redis sink: %v", err)
	}
	go mirror.Run()

	mgr.StartAll()
	log.Printf("All sensor workers started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("Shutting down...")
	mgr.StopAll()
	<-mirror.Done()
	log.Printf("Shutdown complete")
}

// demoPayload builds a small byte stream containing a handful of valid
// UART frames with garbage in between, for the fake demo sensor.
func demoPayload() []byte {
	frame := func(payload []byte) []byte {
		crc := byte(0)
		for _, b := range payload {
			crc ^= b
			for i := 0; i < 8; i++ {
				if crc&0x80 != 0 {
					crc = (crc << 1) ^ 0x07
				} else {
					crc <<= 1
				}
			}
		}
		out := []byte{0xAA, byte(len(payload))}
		out = append(out, payload...)
		out = append(out, crc)
		return out
	}

	data := []byte{0x00, 0xFF, 0x10}
	data = append(data, frame([]byte{1, 2, 3})...)
	data = append(data, 0x00)
	data = append(data, frame([]byte{4, 5, 6, 7})...)
	return data
}
