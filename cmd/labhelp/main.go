package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Raytar/labhelp"
	"github.com/Raytar/labhelp/database"
	"github.com/Raytar/labhelp/protocol"
)

const (
	appName = "labhelp"
	cfgFile = ".labhelprc"
)

var log = &logrus.Logger{
	Out:       os.Stderr,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.InfoLevel,
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          appName,
		Short:        "Coordinate a lab session between student groups and teaching assistants",
		Long:         "labhelp joins a lab session as a student group or as a teaching assistant. Groups receive tasks and ask for help; TAs hand out tasks and serve the help queue.",
		SilenceUsage: true,
	}
	addFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "group <name>",
			Short: "Join the session as a student group",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, roleGroup, joinArgs(args))
			},
		},
		&cobra.Command{
			Use:   "ta <name>",
			Short: "Join the session as a teaching assistant",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, roleTA, joinArgs(args))
			},
		},
	)
	return rootCmd
}

func run(cmd *cobra.Command, role, name string) error {
	cfg, err := initConfig(cmd.Flags())
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBus(ctx, cfg)
	if err != nil {
		log.Errorln("Failed to connect to the bus:", err)
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			log.Errorln("Failed to close the bus:", err)
		}
	}()

	var db *database.Database
	sessionCfg := labhelp.Config{
		Bus:      b,
		Topics:   protocol.NewTopics(cfg.TopicPrefix),
		Log:      log,
		Reminder: cfg.Reminder,
	}
	if role == roleTA {
		db, err = database.OpenDatabase(cfg.DBPath, log)
		if err != nil {
			log.Errorln("Failed to open the journal:", err)
			return err
		}
		defer db.Close()
		sessionCfg.Journal = db
	}

	session, err := labhelp.New(sessionCfg)
	if err != nil {
		return err
	}
	defer session.Close()

	out := newPrinter(cmd.OutOrStdout())
	con := &console{out: out, db: db}
	switch role {
	case roleGroup:
		con.group, err = session.JoinAsGroup(ctx, name, out)
		con.commands = groupCommands
	case roleTA:
		con.ta, err = session.JoinAsTA(ctx, name, out)
		con.commands = assistantCommands
	}
	if err != nil {
		return err
	}
	out.info("Joined as " + name + ". Type ? for a list of commands.")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return con.run(ctx, readLines(cmd.InOrStdin()))
	})
	eg.Go(func() error {
		<-ctx.Done()
		return session.Close()
	})
	if err := eg.Wait(); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
