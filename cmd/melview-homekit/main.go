package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge"
	"github.com/cloudkucooland/HomeKitBridges/MelviewHKBridge/melview"

	"github.com/brutella/hap"
	"github.com/brutella/hap/log"

	"github.com/urfave/cli/v2"

	"github.com/vishvananda/netlink"
)

func main() {
	var dir, config string
	var debug bool

	app := cli.App{
		Name:  "Melview homekit bridge",
		Usage: "server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Value:       "/var/db/HomeKitBridges/Melview",
				Usage:       "configuration directory",
				Destination: &dir,
			},
			&cli.StringFlag{
				Name:        "config",
				Usage:       "config file (default <dir>/config.json)",
				Destination: &config,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "log every request and poll",
				Destination: &debug,
			},
		},
		Action: func(c *cli.Context) error {
			if debug {
				log.Debug.Enable()
			}

			fulldir, err := filepath.Abs(dir)
			if err != nil {
				log.Info.Panic("unable to get config directory", dir)
			}
			if config == "" {
				config = filepath.Join(fulldir, "config.json")
			}

			conf, err := melviewhkb.LoadConfig(config)
			if err != nil {
				return err
			}
			if conf.Email == "" || conf.Password == "" {
				return errors.New("melview email and password are required")
			}

			client, err := melview.New(conf.Email, conf.Password,
				melview.WithRateLimit(conf.RateLimit, 4),
				melview.WithTimeout(conf.RequestTimeout()))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			metrics := melviewhkb.NewMetrics()
			platform := melviewhkb.New(ctx, conf, client).WithMetrics(metrics)

			cache, err := melviewhkb.OpenCache(fulldir)
			if err != nil {
				log.Info.Printf("running without startup cache: %s", err.Error())
			} else {
				defer cache.Close()
				platform.WithCache(cache)
			}

			if conf.MQTT.Broker != "" {
				mirror, err := melviewhkb.NewMirror(conf.MQTT)
				if err != nil {
					log.Info.Printf("running without mqtt: %s", err.Error())
				} else {
					defer mirror.Close()
					platform.WithMirror(mirror)
				}
			}

			if err := platform.Startup(ctx, client); err != nil {
				log.Info.Panic(err)
			}

			var httpwaitgroup sync.WaitGroup
			if conf.ListenAddr != "" {
				httpwaitgroup.Add(1)
				go func() {
					defer httpwaitgroup.Done()
					platform.HTTPServer(ctx, conf.ListenAddr)
				}()
			}

			// listen for interface status changes
			var linkstatuschan = make(chan netlink.LinkUpdate, 5)
			var disconnectchan = make(chan struct{})
			if err := netlink.LinkSubscribe(linkstatuschan, disconnectchan); err != nil {
				log.Info.Panic(err.Error())
			}

			// wait for signal to shut down
			sigch := make(chan os.Signal, 3)
			signal.Notify(sigch, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, os.Interrupt)

			// does not change over time
			bridge := platform.Bridge()
			devices := platform.Devices()
			var hapwaitgroup sync.WaitGroup

		DONE:
			for {
				hapctx, hapcancel := context.WithCancel(ctx)
				log.Info.Printf("serving %d melview accessories", len(devices))
				hapserver, err := hap.NewServer(hap.NewFsStore(fulldir), bridge, devices...)
				if err != nil {
					log.Info.Panic(err)
				}
				hapserver.Pin = conf.Pin

				hapwaitgroup.Add(1)
				go func() {
					defer hapwaitgroup.Done()
					hapserver.ListenAndServe(hapctx)
				}()

				select {
				case sig := <-sigch:
					log.Info.Printf("shutdown requested by signal: %s", sig)
					hapcancel()
					hapwaitgroup.Wait()
					break DONE
				case <-linkstatuschan:
					log.Info.Printf("interface change, restarting HomeKit service")
					hapcancel()
					hapwaitgroup.Wait()
					// loop back around
				}
			}
			close(disconnectchan)
			cancel()
			httpwaitgroup.Wait()
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Info.Panic(err)
	}
}
