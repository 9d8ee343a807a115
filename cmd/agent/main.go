package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"waygroup/internal/channel"
	"waygroup/internal/channel/mqtransport"
	"waygroup/internal/channel/wstransport"
	"waygroup/internal/config"
	"waygroup/internal/directions"
	"waygroup/internal/location"
	"waygroup/internal/logger"
	"waygroup/internal/models"
	"waygroup/internal/navigation"
	"waygroup/internal/presence"
	"waygroup/internal/storage"
	"waygroup/internal/storage/postgres"
	"waygroup/internal/storage/repositories"
	"waygroup/internal/track"
)

type Application struct {
	config *config.Config

	redisClient *redis.Client
	postgresDB  *postgres.PostgresDB
	influxDB    *track.InfluxDB

	messageRepository *repositories.MessageRepository
	roomRepository    *repositories.RoomRepository
	trackWriter       *track.Writer

	channelClient *channel.Client
	sampleFilter  *location.SampleFilter
	source        location.Source
	presenceSync  *presence.Synchronizer
	directions    *directions.Client
	announcer     *navigation.Announcer
	navSession    *navigation.Session

	stopPublish func()

	shutdownChan chan os.Signal
	ctx          context.Context
	cancelFunc   context.CancelFunc
}

func main() {
	app := &Application{}

	if err := app.initialize(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	if err := app.run(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run application")
	}
}

func (app *Application) initialize() error {
	var err error

	app.config, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	if app.config.Identity.UserID == "" {
		app.config.Identity.UserID = uuid.NewString()
	}

	logger.NewLogger(app.config.Logger)
	log.Info().
		Str("component", "main").
		Str("user_id", app.config.Identity.UserID).
		Msg("Setting up agent...")

	app.ctx, app.cancelFunc = context.WithCancel(context.Background())
	app.shutdownChan = make(chan os.Signal, 1)
	signal.Notify(app.shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	if err := app.initializeStores(); err != nil {
		return fmt.Errorf("error while initializing stores: %w", err)
	}

	if err := app.initializeChannel(); err != nil {
		return fmt.Errorf("error while initializing channel: %w", err)
	}

	if err := app.initializeServices(); err != nil {
		return fmt.Errorf("error while initializing services: %w", err)
	}

	if err := app.joinActiveRoom(); err != nil {
		return fmt.Errorf("error while joining room: %w", err)
	}

	if err := app.startStreams(); err != nil {
		return fmt.Errorf("error while starting streams: %w", err)
	}

	log.Info().Msg("Successfully initialized application")
	return nil
}

func (app *Application) initializeStores() error {
	if app.config.Redis.URL != "" {
		opts, err := redis.ParseURL(app.config.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}

		client := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(app.ctx, 5*time.Second)
		defer cancel()

		if _, err := client.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		app.redisClient = client
	}

	if app.config.HasPostgres() {
		var err error
		app.postgresDB, err = postgres.NewConnection(app.config.Postgres)
		if err != nil {
			return fmt.Errorf("could not connect to PostgreSQL: %w", err)
		}

		db := app.postgresDB.GetDB()
		app.messageRepository = repositories.NewMessageRepository(db)
		app.roomRepository = repositories.NewRoomRepository(db)
	}

	if app.config.HasInflux() {
		var err error
		app.influxDB, err = track.NewConnection(&app.config.InfluxDB)
		if err != nil {
			return fmt.Errorf("could not connect to InfluxDB: %w", err)
		}

		app.trackWriter = track.NewWriter(
			app.influxDB.GetWriteAPI(),
			app.config.Identity.UserID,
			logger.GetLogger("track-writer"),
		)
	}

	log.Info().
		Str("component", "main").
		Bool("redis", app.redisClient != nil).
		Bool("postgres", app.postgresDB != nil).
		Bool("influx", app.influxDB != nil).
		Msg("Successfully initialized stores")
	return nil
}

func (app *Application) initializeChannel() error {
	var transport channel.Transport
	switch app.config.Channel.Transport {
	case "mqtt":
		transport = mqtransport.NewTransport(app.config.Channel, logger.GetLogger("mq-transport"))
	default:
		transport = wstransport.NewTransport(app.config.Channel.URL, logger.GetLogger("ws-transport"))
	}

	app.channelClient = channel.NewClient(transport, app.config.Channel, logger.GetLogger("channel-client"))

	connectCtx, cancel := context.WithTimeout(app.ctx, app.config.Channel.ConnectTimeout)
	defer cancel()

	if err := app.channelClient.Connect(connectCtx, channel.Credential{Token: app.config.Channel.Token}); err != nil {
		return fmt.Errorf("could not connect to relay: %w", err)
	}

	log.Info().
		Str("component", "main").
		Str("transport", app.config.Channel.Transport).
		Msg("Successfully initialized channel client")
	return nil
}

func (app *Application) initializeServices() error {
	app.sampleFilter = location.NewSampleFilter(app.config.Filter)

	var tracker presence.Tracker
	if app.trackWriter != nil {
		tracker = app.trackWriter
	}

	app.presenceSync = presence.NewSynchronizer(
		app.channelClient,
		app.sampleFilter,
		tracker,
		app.config.Identity.UserID,
		logger.GetLogger("presence-sync"),
	)
	if app.messageRepository != nil {
		app.presenceSync.SetHistorySink(app.messageRepository)
	}

	var routeCache *directions.RouteCache
	if app.redisClient != nil {
		routeCache = directions.NewRouteCache(
			app.redisClient,
			app.config.Directions.CacheTTL,
			logger.GetLogger("route-cache"),
		)
	}
	app.directions = directions.NewClient(app.config.Directions, routeCache, logger.GetLogger("directions"))

	if app.config.Simulation.Enabled {
		source, err := location.NewSimulatedSource(app.config.Simulation, logger.GetLogger("sim-source"))
		if err != nil {
			return fmt.Errorf("could not create simulated source: %w", err)
		}
		app.source = source
	}

	app.announcer = navigation.NewAnnouncer(
		navigation.LogSink{Logger: logger.GetLogger("voice")},
		app.config.Navigation,
	)

	if app.source != nil {
		// The agent has no permission prompt; the grant is implicit.
		grant := func(ctx context.Context) error { return nil }

		app.navSession = navigation.NewSession(
			app.directions,
			app.source,
			app.sampleFilter,
			app.announcer,
			grant,
			app.config.Navigation,
			logger.GetLogger("nav-session"),
		)
	}

	log.Info().
		Str("component", "main").
		Msg("Successfully initialized services")
	return nil
}

func (app *Application) joinActiveRoom() error {
	roomID := app.config.Room.ID
	if roomID == "" {
		return nil
	}

	app.presenceSync.Bind(app.channelClient)

	joinCtx, cancel := context.WithTimeout(app.ctx, app.config.Channel.JoinTimeout)
	defer cancel()

	joined, err := app.channelClient.JoinRoom(joinCtx, roomID)
	if err != nil {
		return fmt.Errorf("could not join room %s: %w", roomID, err)
	}

	app.presenceSync.SetActiveRoom(joined.RoomID)

	if err := app.channelClient.RequestChatHistory(joined.RoomID); err != nil {
		log.Debug().Err(err).Msg("could not request chat history")
	}

	if app.roomRepository != nil {
		now := time.Now()
		record := &storage.RoomRecord{
			ID:         joined.RoomID,
			Name:       joined.RoomName,
			JoinedAt:   now,
			LastActive: now,
		}
		if err := app.roomRepository.CreateOrUpdate(app.ctx, record); err != nil {
			log.Debug().Err(err).Msg("could not cache room locally")
		}
	}

	log.Info().
		Str("component", "main").
		Str("room_id", joined.RoomID).
		Str("room_name", joined.RoomName).
		Msg("Joined room")
	return nil
}

func (app *Application) startStreams() error {
	if app.source != nil {
		stop, err := app.source.Subscribe(app.presenceSync.PublishLocalSample)
		if err != nil {
			return fmt.Errorf("could not subscribe to position source: %w", err)
		}
		app.stopPublish = stop
	}

	if app.navSession != nil && app.config.Navigation.Enabled {
		params := navigation.StartParams{
			OriginLat: app.config.Navigation.OriginLat,
			OriginLng: app.config.Navigation.OriginLng,
			DestLat:   app.config.Navigation.DestLat,
			DestLng:   app.config.Navigation.DestLng,
			Mode:      models.TravelMode(app.config.Navigation.Mode),
		}

		if err := app.navSession.Start(app.ctx, params); err != nil {
			return fmt.Errorf("could not start navigation: %w", err)
		}
	}

	return nil
}

func (app *Application) run() error {
	select {
	case sig := <-app.shutdownChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-app.ctx.Done():
		log.Info().Msg("context cancelled, shutting down application")
	}

	return app.shutdown()
}

func (app *Application) shutdown() error {
	if app.navSession != nil {
		app.navSession.Stop()
	}

	if app.stopPublish != nil {
		app.stopPublish()
	}

	if app.presenceSync != nil && app.channelClient != nil {
		if app.config.Room.ID != "" {
			app.channelClient.LeaveRoom(app.config.Room.ID)
		}
		app.presenceSync.Unbind(app.channelClient)
		app.presenceSync.Clear()
	}

	if app.channelClient != nil {
		app.channelClient.Close()
	}

	if app.influxDB != nil {
		app.influxDB.Close()
	}

	if app.postgresDB != nil {
		if err := app.postgresDB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing PostgreSQL connection")
		}
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis connection")
		}
	}

	app.cancelFunc()
	return nil
}
