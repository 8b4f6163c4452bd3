package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"gpsbeacon/internal/config"
	"gpsbeacon/internal/gps"
	"gpsbeacon/internal/mqtt"
	"gpsbeacon/internal/udp"
	"gpsbeacon/internal/web"
)

const streamInterval = time.Second

// runtime owns every long-lived component and their shutdown order.
type runtime struct {
	cfg config.Config
	log *zap.SugaredLogger
	clk clock.Clock

	status *web.Status
	logs   *web.LogBuffer
	level  http.Handler
	stream *web.Broadcaster

	gps *gps.Service
	fwd *udp.Forwarder
	pub *mqtt.Publisher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// level may be nil; when set it is exposed for runtime log level changes.
func newRuntime(cfg config.Config, logger *zap.SugaredLogger, logs *web.LogBuffer, level http.Handler, opts ...gps.Option) (*runtime, error) {
	c := cfg
	if err := config.DefaultAndValidate(&c); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	r := &runtime{
		cfg:    c,
		log:    logger,
		clk:    clock.New(),
		status: web.NewStatus(),
		logs:   logs,
		level:  level,
		stream: web.NewBroadcaster(),
	}

	var engineOpts []gps.EngineOption
	if c.Forward.Enable {
		fwd, err := udp.NewForwarder(c.Forward.Dest)
		if err != nil {
			return nil, fmt.Errorf("forward init: %w", err)
		}
		r.fwd = fwd
		engineOpts = append(engineOpts, gps.WithSentenceHook(r.forward))
	}

	if c.MQTT.Enable {
		r.pub = mqtt.New(mqtt.Config{
			Broker:   c.MQTT.Broker,
			ClientID: c.MQTT.ClientID,
			Topic:    c.MQTT.Topic,
			Interval: c.MQTT.Interval,
			QoS:      c.MQTT.QoS,
			Retained: c.MQTT.Retained,
		}, logger, mqtt.WithResultHook(r.status.MarkPublished))
	}

	svcOpts := append([]gps.Option{gps.WithEngineOptions(engineOpts...)}, opts...)
	r.gps = gps.New(gps.Config{
		Enable:   c.GPS.Enable,
		Source:   c.GPS.Source,
		Device:   c.GPS.Device,
		Baud:     c.GPS.Baud,
		Backend:  c.GPS.Backend,
		GPSDAddr: c.GPS.GPSDAddr,
		File:     c.GPS.File,
		FileRate: c.GPS.FileRate,
		FileLoop: c.GPS.FileLoop,
		Tick:     c.GPS.Tick,
		Sim:      c.GPS.Sim,
	}, logger.Named("gps"), svcOpts...)

	return r, nil
}

// forward runs on the gps driver goroutine for every accepted sentence.
func (r *runtime) forward(line string) {
	if err := r.fwd.SendSentence(line); err != nil {
		r.log.Debugw("forward failed", "dest", r.fwd.Dest(), "err", err)
		return
	}
	r.status.MarkForwarded()
}

func (r *runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	if err := r.gps.Start(ctx); err != nil {
		// Keep the web surface up so the failure is visible there.
		r.log.Errorw("gps init failed", "err", err)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.streamLoop(ctx)
	}()

	if r.pub != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.pub.Connect(ctx); err != nil {
				r.log.Warnw("mqtt connect failed", "broker", r.cfg.MQTT.Broker, "err", err)
			}
			if err := r.pub.Run(ctx, r.gps.Snapshot); err != nil && !errors.Is(err, context.Canceled) {
				r.log.Warnw("mqtt publisher stopped", "err", err)
			}
		}()
	}

	if r.cfg.Web.Enable {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			err := web.Serve(ctx, r.cfg.Web.Listen, web.Deps{
				Fix:    r.gps,
				Status: r.status,
				Logs:   r.logs,
				Stream: r.stream,
				Log:    r.log.Named("web"),
				Level:  r.level,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				r.log.Errorw("web server stopped", "listen", r.cfg.Web.Listen, "err", err)
			}
		}()
		r.log.Infow("web enabled", "listen", r.cfg.Web.Listen)
	}
	return nil
}

func (r *runtime) streamLoop(ctx context.Context) {
	t := r.clk.Ticker(streamInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.stream.Publish(r.gps.Snapshot())
		}
	}
}

func (r *runtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.gps.Close()
	r.wg.Wait()

	var err error
	if r.pub != nil {
		r.pub.Close()
	}
	if r.fwd != nil {
		err = multierr.Append(err, r.fwd.Close())
	}
	return err
}
