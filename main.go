package main

import (
	"log"
	"os"

	"gtd-backend/cases"
	"gtd-backend/conn"
	"gtd-backend/dailychallenge"
	"gtd-backend/game"
	"gtd-backend/gameplay"
	"gtd-backend/genai"
	"gtd-backend/leaderboard"
	"gtd-backend/login"
	"gtd-backend/migrations"
	"gtd-backend/notifications"
	"gtd-backend/quizzes"
	"gtd-backend/quota"
	"gtd-backend/subscriptions"
	"gtd-backend/users"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Main] no .env file loaded: %v", err)
	}

	db, err := conn.NewMySQL()
	if err != nil {
		log.Fatalf("[Main] database connection failed: %v", err)
	}
	migrations.Init(db)
	if err := migrations.Migrate(); err != nil {
		log.Fatalf("[Main] migrations failed: %v", err)
	}

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "User-Timezone"},
	}))

	// Auth
	r.POST("/api/login/google/loginSignUp", login.GoogleLoginHandler)
	r.GET("/api/login/session", login.SessionHandler)
	r.POST("/api/login/logout", login.LogoutHandler)

	// Quota gate for game starts
	quota.RegisterUserResolver(func(email string) *quota.UserLite {
		u := migrations.GetUserByEmail(email)
		if u == nil {
			return nil
		}
		return &quota.UserLite{ID: u.ID, Email: u.Email, IsPremium: u.IsPremium}
	})
	validator := quota.NewValidator()

	// Diagnostic game engine
	gameHandler := game.DefaultHandler()
	gameHandler.SetQuotaValidator(validator.ValidateAndConsume)
	gameHandler.RegisterRoutes(r)

	// Content and progression
	cases.NewHandler(cases.NewRepository(db)).RegisterRoutes(r)
	gameplay.NewHandler(gameplay.NewRepository(db)).RegisterRoutes(r)
	leaderboard.NewHandler(leaderboard.NewRepository(db)).RegisterRoutes(r)
	dailychallenge.NewHandler(dailychallenge.NewRepository(db)).RegisterRoutes(r)
	users.NewHandler(users.NewRepository(db)).RegisterRoutes(r)
	quizzes.NewHandler(quizzes.NewRepository(db), genai.NewClient()).RegisterRoutes(r)

	// Billing
	subscriptions.NewHandler(subscriptions.NewStripeFromEnv()).RegisterRoutes(r)

	// Push notifications and the daily case reminder
	notifRepo := notifications.NewRepository(db)
	fcm := notifications.NewFCMFromEnv()
	var scheduler *notifications.Scheduler
	if fcm != nil {
		scheduler = notifications.NewScheduler(notifications.NewFanout(notifRepo, fcm))
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		log.Printf("[Main] FCM_SERVER_KEY not set, push notifications disabled")
	}
	notifications.NewHandler(notifRepo, fcm, scheduler).RegisterRoutes(r)

	addr := ":8080"
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	if err := r.Run(addr); err != nil {
		log.Fatalf("[Main] server stopped: %v", err)
	}
}
