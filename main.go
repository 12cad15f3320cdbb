package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/api"
	"kanban-api/engine"
	"kanban-api/storage"
)

func tableEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	if connStr == "" {
		log.Fatal("missing storage config")
	}
	tables := storage.Tables{
		Boards:      tableEnv("BOARDS_TABLE", "boards"),
		Buckets:     tableEnv("BUCKETS_TABLE", "buckets"),
		Tasks:       tableEnv("TASKS_TABLE", "tasks"),
		Checklist:   tableEnv("CHECKLIST_TABLE", "checklistelements"),
		Links:       tableEnv("LINKS_TABLE", "links"),
		Attachments: tableEnv("ATTACHMENTS_TABLE", "attachments"),
		Comments:    tableEnv("COMMENTS_TABLE", "comments"),
		Assignments: tableEnv("ASSIGNMENTS_TABLE", "taskassignments"),
		Users:       tableEnv("USERS_TABLE", "users"),
	}
	store, err := storage.New(connStr, tables)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	logger := log.New()

	var tickets engine.TicketSyncAdapter
	if os.Getenv("TICKET_SYNC") == "1" {
		ts, err := storage.NewTicketSync(connStr,
			tableEnv("TICKETS_TABLE", "tickets"),
			tableEnv("TICKET_COMMENTS_TABLE", "ticketcomments"))
		if err != nil {
			log.Fatalf("ticket sync: %v", err)
		}
		tickets = ts
	}

	eventsQueueName := os.Getenv("EVENTS_QUEUE")
	if eventsQueueName == "" {
		log.Fatal("missing events queue config")
	}
	queue, err := newQueueClient(connStr, eventsQueueName)
	if err != nil {
		log.Fatalf("events queue: %v", err)
	}

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		rc = redis.NewClient(redisOptions(redisConn))
	}
	channel := tableEnv("EVENTS_CHANNEL", "task-events")
	bus := storage.NewEventBus(queue, rc, channel, logger)

	files := storage.NewDiskFileStore(tableEnv("UPLOAD_DIR", "uploads"))

	eng := engine.New(store, bus, tickets, store, files, logger)

	testMode := os.Getenv("AUTH0_TEST_MODE") == "1"
	var auth *api.Auth
	if testMode {
		auth = api.NewTestAuth([]byte(os.Getenv("AUTH0_TEST_SECRET")))
	} else {
		jwtAudience := os.Getenv("AUTH0_AUDIENCE")
		domain := os.Getenv("AUTH0_DOMAIN")
		if jwtAudience == "" || domain == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+domain+"/")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	api.Register(e, eng, auth, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

func newQueueClient(connStr, name string) (*azqueue.QueueClient, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	return azqueue.NewQueueClientFromConnectionString(connStr, name, &opts)
}

func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
