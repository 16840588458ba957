package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"dialist/internal/adapter/api"
	"dialist/internal/adapter/api/handler"
	apimiddleware "dialist/internal/adapter/api/middleware"
	"dialist/internal/adapter/api/router"
	"dialist/internal/adapter/repository"
	"dialist/internal/domain/service"
	fbinfra "dialist/internal/infrastructure/firebase"
	"dialist/internal/infrastructure/messaging"
	"dialist/internal/infrastructure/websocket"
	"dialist/internal/usecase"
	"dialist/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var opts []option.ClientOption
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	messagingClient, err := firebaseApp.Messaging(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Messaging: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	channelRepo := repository.NewFirestoreChannelRepository(firestoreClient)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)
	orderRepo := repository.NewFirestoreOrderRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	conversations := messaging.NewConversationClient(firestoreClient, wsManager)
	notifier := messaging.NewPushNotifier(messagingClient, userRepo)

	offerMachine := service.NewOfferMachine(cfg.OfferTTL)

	negotiationUseCase := usecase.NewNegotiationUseCase(
		channelRepo,
		listingRepo,
		orderRepo,
		userRepo,
		conversations,
		notifier,
		offerMachine,
		cfg.ChannelMode,
		cfg.ReservationTTL,
	)

	expiryUseCase := usecase.NewExpiryUseCase(channelRepo, conversations, offerMachine)
	expiryUseCase.StartSweepJob(ctx, cfg.SweepInterval)

	e := echo.New()

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient, cfg.DevTokenSecret, cfg.Environment)
	firebaseAuth := fbinfra.NewFirebaseAuthClient(authClient)

	negotiationHandler := handler.NewNegotiationHandler(negotiationUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, firebaseAuth)
	devTokenHandler := handler.NewDevTokenHandler(firebaseAuth, userRepo, cfg.DevTokenSecret)

	router.Setup(e, negotiationHandler, wsHandler, authMiddleware)
	router.SetupDevRouter(e, devTokenHandler, cfg.Environment)

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	if err := e.Shutdown(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
