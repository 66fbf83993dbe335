package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskflow-api/api"
	"taskflow-api/storage"
)

func main() {
	// Local development keeps its settings in a .env file.
	_ = godotenv.Load()

	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		log.Fatal("missing SESSION_SECRET")
	}
	sessionTTL := 7 * 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid SESSION_TTL: %v", err)
		}
		sessionTTL = d
	}

	var auth *api.Auth
	if authDomain := os.Getenv("AUTH_DOMAIN"); authDomain != "" {
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", authDomain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuthWithJWKS([]byte(secret), sessionTTL, jwks, os.Getenv("AUTH_AUDIENCE"), "https://"+authDomain+"/")
	} else {
		auth = api.NewAuth([]byte(secret), sessionTTL)
	}

	var tasks api.TaskStore
	var users api.UserStore
	var sink api.EventSink
	if connStr := os.Getenv("STORAGE_CONNECTION_STRING"); connStr != "" {
		tasksTableName := os.Getenv("TASKS_TABLE")
		usersTableName := os.Getenv("USERS_TABLE")
		eventQueueName := os.Getenv("TASK_EVENTS_QUEUE")
		if tasksTableName == "" || usersTableName == "" || eventQueueName == "" {
			log.Fatal("missing storage config")
		}
		tables, err := storage.NewTables(connStr, tasksTableName, usersTableName, eventQueueName)
		if err != nil {
			log.Fatalf("storage: %v", err)
		}
		tasks, users, sink = tables, tables, tables
	} else {
		mem := storage.NewMemory()
		tasks, users = mem, mem
		log.Info("using in-memory storage; data resets on restart")
	}

	var deduper api.Deduper
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc := redis.NewClient(redisOpts)

		cacheTTL := 5 * time.Minute
		if v := os.Getenv("CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d < 0 {
				log.Fatalf("invalid CACHE_TTL: %v", err)
			}
			cacheTTL = d
		}
		tasks = storage.NewCache(tasks, rc, cacheTTL)

		dedupTTL := 24 * time.Hour
		if v := os.Getenv("DEDUPER_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid DEDUPER_TTL: %v", err)
			}
			dedupTTL = d
		}
		deduper = api.NewRedisDeduper(rc, dedupTTL)
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(api.GzipRequestMiddleware())

	logger := log.New()
	api.Register(e, tasks, users, auth, deduper, sink, logger)

	listenAddr := ":8080"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		listenAddr = v
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
