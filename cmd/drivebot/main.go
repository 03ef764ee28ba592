// Command drivebot runs a two-motor robot: a debounced touch sensor starts and
// stops the drive, and an ultrasonic sensor stops it in front of obstacles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/drivebot/internal/gpio"
	"github.com/sweeney/drivebot/internal/logic"
	"github.com/sweeney/drivebot/internal/mqtt"
	"github.com/sweeney/drivebot/internal/status"
	"github.com/sweeney/drivebot/internal/web"
)

func main() {
	if err := drivebotMain(os.Args[1:]); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// drivebotMain is the real entry point; defers in main are skipped by log.Fatalf.
func drivebotMain(args []string) error {
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)

	cfg, err := loadConfig(args)
	var flagsErr *flags.Error
	if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Debug("debug logging enabled")
	}

	return run(cfg)
}

func run(cfg *config) error {
	hw, err := openHardware(cfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := hw.Close(); err != nil {
			log.Errorf("close hardware: %v", err)
		}
	}()

	if cfg.PrintState {
		return printState(os.Stdout, hw.button, hw.sonar, cfg.SonarInterval)
	}

	if cfg.CheckButton {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		db := gpio.NewDebouncedButton(hw.button, cfg.Debounce, gpio.SystemClock{})
		return checkButton(ctx, os.Stdout, db, cfg.Poll)
	}

	// Initialize MQTT
	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	} else {
		log.Info("no broker configured, MQTT disabled")
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), cfg.statusConfig())
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warnf("failed to publish startup event: %v", err)
	} else {
		log.Debug("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, cfg.Push)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Infof("http status server listening on %s", cfg.HTTP)
	}

	log.Infof("started: backend=%s poll=%v debounce=%v min-range=%dcm broker=%q heartbeat=%v",
		cfg.Backend, cfg.Poll, cfg.Debounce, cfg.MinRange, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(hw.button, hw.sonar, hw.drive, publisher, publisher, tracker,
		cfg.controllerConfig(), cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

func runLoop(button gpio.Button, sonar gpio.RangeSensor, drive *gpio.Drive, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, cfg logic.Config, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	controller := logic.NewController(cfg, startTime)

	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}

			t := now()
			if ev := controller.Halt(t); ev != nil {
				handleEvent(*ev, drive, publisher)
			}
			updateTracker(tracker, controller, mqttStatus)

			event := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warnf("failed to publish shutdown event: %v", err)
			} else {
				log.Debug("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()

			pressed, err := button.Pressed()
			if err != nil {
				// A button that cannot be read must never start the drive.
				log.Warnf("button read error: %v", err)
				pressed = false
			}

			distance, err := sonar.Distance()
			distanceOK := err == nil
			if err != nil {
				if controller.State() == logic.StateRunning {
					log.Warnf("range read error while running: %v", err)
				} else {
					log.Debugf("range read error: %v", err)
				}
			}

			events := controller.Process(logic.Input{
				Pressed:    pressed,
				DistanceCm: distance,
				DistanceOK: distanceOK,
				Time:       t,
			})
			for _, event := range events {
				handleEvent(event, drive, publisher)
			}

			// Check for heartbeat
			if hbData := controller.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.WithFields(log.Fields{
					"uptime":          hbData.Uptime.Truncate(time.Second),
					"starts":          hbData.Counts.Starts,
					"button_stops":    hbData.Counts.ButtonStops,
					"proximity_stops": hbData.Counts.ProximityStops,
					"fault_stops":     hbData.Counts.FaultStops,
				}).Info("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					updateTracker(tracker, controller, mqttStatus)
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Warnf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			updateTracker(tracker, controller, mqttStatus)
		}
	}
}

// handleEvent commands the motors for a transition and publishes it.
// Failures are logged; the control loop keeps running.
func handleEvent(event logic.Event, drive *gpio.Drive, publisher mqtt.Publisher) {
	var err error
	switch event.Type {
	case logic.EventStart:
		err = drive.Forward()
	case logic.EventStop:
		err = drive.Stop()
	}

	entry := log.WithFields(log.Fields{
		"reason":      event.Reason,
		"state":       event.State,
		"distance_cm": event.DistanceCm,
	})
	if err != nil {
		entry.Errorf("drive %s failed: %v", event.Type, err)
	} else {
		entry.Infof("drive %s", event.Type)
	}

	if err := publisher.Publish(event); err != nil {
		log.Warnf("publish error: %v", err)
		// Don't crash on publish failure
	}
}

func updateTracker(tracker *status.Tracker, controller *logic.Controller, mqttStatus mqtt.ConnectionStatus) {
	if tracker == nil {
		return
	}
	tracker.Update(controller.State(), controller.ButtonState(), controller.LastDistance(), controller.EventCountsSnapshot())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// printState waits for the first sonar sample and prints the raw inputs.
func printState(w io.Writer, button gpio.Button, sonar gpio.RangeSensor, sonarInterval time.Duration) error {
	pressed, err := button.Pressed()
	if err != nil {
		return fmt.Errorf("read button: %w", err)
	}

	var distance int
	for attempt := 0; ; attempt++ {
		distance, err = sonar.Distance()
		if !errors.Is(err, gpio.ErrNoSample) || attempt >= 10 {
			break
		}
		time.Sleep(sonarInterval)
	}

	fmt.Fprintf(w, "button: %s\n", pressedString(pressed))
	if err != nil {
		fmt.Fprintf(w, "distance: unavailable (%v)\n", err)
		return nil
	}
	fmt.Fprintf(w, "distance: %d cm\n", distance)
	return nil
}

// checkButton reports every debounced press-release until ctx is done.
func checkButton(ctx context.Context, w io.Writer, button *gpio.DebouncedButton, poll time.Duration) error {
	fmt.Fprintln(w, "waiting for button presses, interrupt to exit")
	count := 0
	for {
		ok, err := button.PollPressRelease(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("poll button: %w", err)
		}
		if ok {
			count++
			fmt.Fprintf(w, "press-release %d confirmed\n", count)
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(poll):
		}
	}
}

func pressedString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}
