package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"office-chat/attachment"
	"office-chat/chat"
	"office-chat/config"
	"office-chat/controller"
	"office-chat/database"
	"office-chat/event"
	"office-chat/event/listener"
	"office-chat/membership"
	"office-chat/presence"
	"office-chat/router"
	"office-chat/socketio"
	"office-chat/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and socket.io server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not migrate the schema on start")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	db, err := database.Connect()
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := database.Migrate(db); err != nil {
			return err
		}
	}
	enforcer, err := database.Casbin(db)
	if err != nil {
		return err
	}

	st := store.New(db)
	tracker := presence.NewTracker()
	rooms := membership.NewRouter(st)

	var publisher chat.Publisher = event.Nop{}
	var mq *event.RabbitMQ
	var eventLog *event.Log
	if config.Config("RABBITMQ_HOST") != "" {
		if config.Config("EVENT_MODE") != "DISABLE" {
			if eventLog, err = event.OpenLog(config.ConfigOr("EVENT_LOG_DIR", "log")); err != nil {
				return err
			}
			defer eventLog.Close()
		}
		mq, err = event.RabbitMQConnect(event.RabbitMQURL(), event.QueueChat, []string{event.QueueChat, event.QueueCommands}, eventLog, logger)
		if err != nil {
			return err
		}
		defer mq.Close()
		publisher = mq
	} else {
		logger.Warn("RABBITMQ_HOST not set, domain events are not published")
	}

	rest := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               "office-chat",
		BodyLimit:             attachment.MaxSize + 1024*1024,
	})
	rest.Use(cors.New())

	redisClient := database.RedisConnect()
	if redisClient != nil {
		defer redisClient.Close()
	}
	socket := socketio.Init(rest, redisClient, []byte(config.Config("JWT_ACCESS_KEY")), logger)

	protocol := chat.NewProtocol(st, tracker, rooms, socket, publisher, logger)
	attachments, files, err := attachmentStore(ctx, db)
	if err != nil {
		return err
	}
	handlers := controller.NewChat(chat.NewService(st, logger), protocol, attachment.NewService(attachments, logger), files, logger)

	router.Rest(rest, handlers, enforcer)
	router.Socket(socket, protocol)

	if mq != nil {
		commands, err := mq.Subscribe(event.QueueCommands)
		if err != nil {
			return err
		}
		go listener.System(ctx, commands, protocol, logger)
	}

	port := config.ConfigOr("SERVER_PORT", "8080")
	errc := make(chan error, 1)
	go func() {
		errc <- rest.Listen(fmt.Sprintf(":%s", port))
	}()
	logger.Info("office-chat listening", "port", port)

	select {
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down")
	socket.Close()
	return rest.ShutdownWithTimeout(10 * time.Second)
}

// attachmentStore picks the backend from ATTACHMENT_STORE. files is nil unless
// attachments are kept in the database.
func attachmentStore(ctx context.Context, db *gorm.DB) (attachment.Store, *attachment.DBStore, error) {
	switch kind := config.ConfigOr("ATTACHMENT_STORE", "db"); kind {
	case "s3":
		client, err := attachment.NewS3Client(ctx)
		if err != nil {
			return nil, nil, err
		}
		return attachment.NewS3Store(client, config.Config("AWS_BUCKET"), config.Config("AWS_REGION")), nil, nil
	case "db":
		files := attachment.NewDBStore(db, "/v1/chat/attachments")
		return files, files, nil
	default:
		return nil, nil, fmt.Errorf("unknown ATTACHMENT_STORE %q", kind)
	}
}
