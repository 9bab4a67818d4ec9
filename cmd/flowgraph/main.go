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

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rulego/flowgraph/agent"
	"github.com/rulego/flowgraph/api/types"
)

type cli struct {
	cfg agent.Config
}

func setupRootFlags(cmd *cobra.Command) {
	defaults := agent.DefaultConfig()
	cmd.PersistentFlags().String("config-file", "", "Path to config file.")
	cmd.PersistentFlags().String("assets-dir", defaults.AssetsDir, "directory of flow asset json files")
	cmd.PersistentFlags().String("log-level", defaults.LogLevel, "debug, info, warn or error")
}

func setupServeFlags(cmd *cobra.Command) {
	defaults := agent.DefaultConfig()
	cmd.Flags().String("http-addr", defaults.Rest.Server, "rest endpoint address, empty disables it")
	cmd.Flags().Bool("debug", false, "stream node debug events at /api/v1/debug/ws")
	cmd.Flags().Duration("tick-interval", defaults.TickInterval, "world loop tick interval")
	cmd.Flags().String("save-store", defaults.SaveStore.Type, "save game store: memory, redis, mysql or postgres")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("namespace", "flowgraph", "namespace used in redis keys")
	cmd.Flags().String("dsn", "", "sql data source name")
	cmd.Flags().String("autosave-cron", "", "autosave cron spec with seconds, empty disables autosave")
	cmd.Flags().String("load-slot", "", "save slot loaded on start")
	cmd.Flags().Bool("replication", false, "replicate authority tag changes over mqtt")
	cmd.Flags().String("mqtt-server", "127.0.0.1:1883", "mqtt broker used for replication")
}

// setupConfig reads the config file, then applies flags and FLOWGRAPH_* environment
// variables that were set explicitly.
func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	viper.SetEnvPrefix("FLOWGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	c.cfg = agent.DefaultConfig()
	if configFile := viper.GetString("config-file"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return err
			}
		}
		if err := viper.Unmarshal(&c.cfg); err != nil {
			return err
		}
	}

	set := func(name string, apply func()) {
		if viper.IsSet(name) && (cmd.Flags().Changed(name) || os.Getenv(envName(name)) != "") {
			apply()
		}
	}
	set("assets-dir", func() { c.cfg.AssetsDir = viper.GetString("assets-dir") })
	set("log-level", func() { c.cfg.LogLevel = viper.GetString("log-level") })
	set("http-addr", func() { c.cfg.Rest.Server = viper.GetString("http-addr") })
	set("debug", func() { c.cfg.Rest.Debug = viper.GetBool("debug") })
	set("tick-interval", func() { c.cfg.TickInterval = viper.GetDuration("tick-interval") })
	set("save-store", func() { c.cfg.SaveStore.Type = viper.GetString("save-store") })
	set("redis-addr", func() { c.cfg.SaveStore.Addrs = strings.Split(viper.GetString("redis-addr"), ",") })
	set("namespace", func() { c.cfg.SaveStore.Namespace = viper.GetString("namespace") })
	set("dsn", func() { c.cfg.SaveStore.Dsn = viper.GetString("dsn") })
	set("autosave-cron", func() { c.cfg.Autosave.Cron = viper.GetString("autosave-cron") })
	set("load-slot", func() { c.cfg.LoadSlot = viper.GetString("load-slot") })
	set("replication", func() { c.cfg.Replication.Enabled = viper.GetBool("replication") })
	set("mqtt-server", func() { c.cfg.Replication.Mqtt.Server = viper.GetString("mqtt-server") })
	if c.cfg.SaveStore.Type == "redis" && len(c.cfg.SaveStore.Addrs) == 0 {
		c.cfg.SaveStore.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	}
	if c.cfg.SaveStore.ConnectTimeout == 0 {
		c.cfg.SaveStore.ConnectTimeout = 30 * time.Second
	}
	return nil
}

func envName(flag string) string {
	return "FLOWGRAPH_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

func (c *cli) serve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, err := agent.New(ctx, c.cfg, nil)
	if err != nil {
		return err
	}
	if err = a.Start(ctx); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return a.Shutdown(shutdownCtx)
}

func (c *cli) validate(cmd *cobra.Command, args []string) error {
	logger, err := types.NewZapLogger(c.cfg.LogLevel)
	if err != nil {
		return err
	}
	failed, err := agent.ValidateAssets(c.cfg.AssetsDir, logger)
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "all assets in %s are valid\n", c.cfg.AssetsDir)
		return nil
	}
	ids := make([]string, 0, len(failed))
	for id := range failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "%s:\n  %s\n", id, strings.ReplaceAll(failed[id].Error(), "\n", "\n  "))
	}
	return fmt.Errorf("%d invalid assets", len(failed))
}

func newCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "flowgraph",
		Short: "headless flow graph server",
	}
	serve := &cobra.Command{
		Use:     "serve",
		Short:   "run the world loop and the rest endpoint",
		PreRunE: c.setupConfig,
		RunE:    c.serve,
	}
	validate := &cobra.Command{
		Use:          "validate",
		Short:        "validate every asset in the assets directory",
		PreRunE:      c.setupConfig,
		RunE:         c.validate,
		SilenceUsage: true,
	}
	setupRootFlags(root)
	setupServeFlags(serve)
	root.AddCommand(serve, validate)
	return root
}

func main() {
	if err := newCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
