/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package agent wires a headless flow server: the world loop, the asset loader, the
// subsystem, save games, the REST endpoint, MQTT replication and autosave.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/rulego/flowgraph/api/types"
	"github.com/rulego/flowgraph/endpoint/rest"
	"github.com/rulego/flowgraph/endpoint/websocket"
	"github.com/rulego/flowgraph/engine"
	"github.com/rulego/flowgraph/replication"
	"github.com/rulego/flowgraph/savegame"
	"github.com/rulego/flowgraph/utils/mqtt"
	"github.com/rulego/flowgraph/world"
)

type Agent struct {
	Config     Config
	logger     types.Logger
	loop       *world.Loop
	assets     engine.AssetLoader
	subsystem  *engine.Subsystem
	store      types.SaveStore
	saves      *savegame.Manager
	hub        *websocket.Hub
	httpServer *rest.Rest
	mqttClient *mqtt.Client
	replicator *replication.Replicator
	cron       *cron.Cron
	components []*engine.FlowComponent

	cancel       context.CancelFunc
	loopDone     chan struct{}
	shutdown     bool
	shutdownLock sync.Mutex
}

// New creates an agent. A nil logger builds a zap logger at config.LogLevel.
func New(ctx context.Context, config Config, logger types.Logger) (*Agent, error) {
	a := &Agent{Config: config, logger: logger}
	setup := []func(ctx context.Context) error{
		a.setupLogger,
		a.setupSubsystem,
		a.setupSaves,
		a.setupHttpServer,
		a.setupAutosave,
	}
	for _, fn := range setup {
		if err := fn(ctx); err != nil {
			if a.store != nil {
				_ = a.store.Close()
			}
			return nil, err
		}
	}
	return a, nil
}

func (a *Agent) setupLogger(ctx context.Context) error {
	if a.logger != nil {
		return nil
	}
	logger, err := types.NewZapLogger(a.Config.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func (a *Agent) setupSubsystem(ctx context.Context) error {
	timers := world.NewTimerManager()
	a.loop = world.NewLoop(timers, a.Config.QueueSize, a.logger)
	a.assets = engine.NewDirectoryLoader(a.Config.AssetsDir, nil, a.Config.AssetCacheTTL, a.logger)
	a.hub = websocket.NewHub(a.logger)
	opts := []types.Option{
		types.WithLogger(a.logger),
		types.WithTimers(timers),
		types.WithProperties(a.Config.Properties),
	}
	if a.Config.ScriptMaxExecutionTime > 0 {
		opts = append(opts, types.WithScriptMaxExecutionTime(a.Config.ScriptMaxExecutionTime))
	}
	if a.Config.Rest.Debug {
		opts = append(opts, types.WithOnDebug(a.hub.Record))
	}
	a.subsystem = engine.NewSubsystem(a.assets, opts...)
	return nil
}

func (a *Agent) setupSaves(ctx context.Context) error {
	store, err := savegame.NewStore(ctx, a.Config.SaveStore, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	a.saves = savegame.NewManager(store, a.subsystem, a.loop)
	return nil
}

func (a *Agent) setupHttpServer(ctx context.Context) error {
	if a.Config.Rest.Server == "" {
		return nil
	}
	a.httpServer = rest.New(a.Config.Rest, a.subsystem, a.loop, a.saves)
	if a.Config.Rest.Debug {
		a.httpServer.MountDebug(a.hub)
	}
	return nil
}

func (a *Agent) setupAutosave(ctx context.Context) error {
	if a.Config.Autosave.Cron == "" {
		return nil
	}
	slot := a.Config.Autosave.Slot
	if slot == "" {
		slot = "autosave"
	}
	a.cron = cron.New(cron.WithSeconds())
	if _, err := a.cron.AddFunc(a.Config.Autosave.Cron, a.saves.Autosave(context.Background(), slot)); err != nil {
		return fmt.Errorf("autosave cron %q: %w", a.Config.Autosave.Cron, err)
	}
	return nil
}

func (a *Agent) setupReplication(ctx context.Context) error {
	if !a.Config.Replication.Enabled {
		return nil
	}
	client, err := mqtt.NewClient(ctx, a.Config.Replication.Mqtt)
	if err != nil {
		return err
	}
	client.OnConnectionLost = func(err error) {
		a.logger.Warnf("replication connection lost: %v", err)
	}
	a.mqttClient = client
	a.replicator = replication.NewReplicator(a.subsystem, client, a.loop, a.Config.Replication.TopicPrefix, a.Config.Replication.Mqtt.QOS)
	return a.loop.Do(ctx, a.replicator.Start)
}

// Subsystem returns the subsystem. It must only be used on the world loop.
func (a *Agent) Subsystem() *engine.Subsystem {
	return a.subsystem
}

func (a *Agent) Loop() *world.Loop {
	return a.loop
}

func (a *Agent) Saves() *savegame.Manager {
	return a.saves
}

func (a *Agent) Rest() *rest.Rest {
	return a.httpServer
}

// Start runs the world loop, spawns the configured actors, loads LoadSlot and starts
// the servers.
func (a *Agent) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.loopDone = make(chan struct{})
	go func() {
		defer close(a.loopDone)
		a.loop.Run(loopCtx, a.Config.TickInterval)
	}()

	start := []func(ctx context.Context) error{
		a.spawnActors,
		a.loadSlot,
		a.setupReplication,
		a.startHttpServer,
	}
	for _, fn := range start {
		if err := fn(ctx); err != nil {
			_ = a.Shutdown(context.Background())
			return err
		}
	}
	if a.cron != nil {
		a.cron.Start()
	}
	return nil
}

func (a *Agent) spawnActors(ctx context.Context) error {
	return a.loop.Do(ctx, func() error {
		var errs []error
		for _, actor := range a.Config.Actors {
			c := engine.NewFlowComponent(actor.Id, world.NewActor(actor.Id, actor.Classes...), actor.Tags...).
				WithClasses(actor.ComponentClasses...)
			c.RootFlow = actor.RootFlow
			if err := c.BeginPlay(a.subsystem); err != nil {
				errs = append(errs, fmt.Errorf("actor %s: %w", actor.Id, err))
				continue
			}
			a.components = append(a.components, c)
			a.logger.Infof("actor %s spawned", actor.Id)
		}
		return errors.Join(errs...)
	})
}

func (a *Agent) loadSlot(ctx context.Context) error {
	if a.Config.LoadSlot == "" {
		return nil
	}
	_, err := a.saves.Load(ctx, a.Config.LoadSlot)
	if errors.Is(err, types.ErrSaveNotFound) {
		a.logger.Warnf("save slot %s not found, starting fresh", a.Config.LoadSlot)
		return nil
	}
	return err
}

func (a *Agent) startHttpServer(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}
	return a.httpServer.Start()
}

// Shutdown stops the servers, ends play of every actor and stops the world loop.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.shutdownLock.Lock()
	defer a.shutdownLock.Unlock()
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	a.logger.Infof("shutting down server")

	var errs []error
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.httpServer != nil {
		errs = append(errs, a.httpServer.Stop(ctx))
	}
	if a.cancel != nil {
		errs = append(errs, a.loop.Do(ctx, func() error {
			var errs []error
			if a.replicator != nil {
				errs = append(errs, a.replicator.Stop())
			}
			for i := len(a.components) - 1; i >= 0; i-- {
				errs = append(errs, a.components[i].EndPlay())
			}
			a.subsystem.Shutdown()
			return errors.Join(errs...)
		}))
		a.cancel()
		<-a.loopDone
	}
	a.hub.Close()
	if a.mqttClient != nil {
		errs = append(errs, a.mqttClient.Close())
	}
	errs = append(errs, a.store.Close())
	return errors.Join(errs...)
}

// ValidateAssets validates every asset in dir. The map holds the failing assets.
func ValidateAssets(dir string, logger types.Logger) (map[string]error, error) {
	assets := engine.NewDirectoryLoader(dir, nil, 0, logger)
	subsystem := engine.NewSubsystem(assets, types.WithLogger(types.NewLogger(logger)))
	ids, err := assets.List()
	if err != nil {
		return nil, err
	}
	failed := make(map[string]error)
	for _, id := range ids {
		def, ok := assets.AssetDef(id)
		if !ok {
			failed[id] = fmt.Errorf("cannot decode asset %s", id)
			continue
		}
		if err := subsystem.Validate(def); err != nil {
			failed[id] = err
		}
	}
	return failed, nil
}
