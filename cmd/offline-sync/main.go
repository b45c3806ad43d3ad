// offline-sync administra la cola local de operaciones pendientes de un punto de venta.
//
// Uso:
//
//	offline-sync list            operaciones en cola
//	offline-sync count           cantidad en cola
//	offline-sync retry           reenvía todas las operaciones
//	offline-sync remove <clave>  descarta una operación
//	offline-sync watch           vigila /health y reconcilia al recuperar la conexión
//
// Variables: OFFLINE_QUEUE_PATH (por defecto ./pos-queue.db), POS_API_URL, POS_API_TOKEN,
// LOG_LEVEL, WATCH_INTERVAL_SECONDS.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/pos-core/pkg/logger"
	"github.com/jhoicas/pos-core/pkg/offlinequeue"
	"github.com/spf13/viper"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: offline-sync list|count|retry|remove <clave>|watch")
		os.Exit(2)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("OFFLINE_QUEUE_PATH", "./pos-queue.db")
	v.SetDefault("POS_API_URL", "http://localhost:8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("WATCH_INTERVAL_SECONDS", 10)

	log := logger.New(logger.Config{Env: "development", Level: v.GetString("LOG_LEVEL")})

	store, err := offlinequeue.OpenSQLite(v.GetString("OFFLINE_QUEUE_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir cola local")
	}
	defer store.Close()

	token := v.GetString("POS_API_TOKEN")
	queue := offlinequeue.New(store, offlinequeue.Options{
		BaseURL: v.GetString("POS_API_URL"),
		Token:   func() string { return token },
		Logger:  log.Component("offline-queue"),
		OnResult: func(op offlinequeue.QueuedOperation, res offlinequeue.Result) {
			fmt.Printf("%s\t%s %s\tHTTP %d\t%s\n", op.ID, op.Method, op.Path, res.Status, op.Label)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "list":
		ops, err := queue.Pending(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("listar cola")
		}
		for _, op := range ops {
			fmt.Printf("%s\t%s\t%s %s\tintentos=%d\t%s\t%s\n",
				op.ID, op.CreatedAt.Local().Format(time.DateTime), op.Method, op.Path, op.Attempts, op.Label, op.LastError)
		}
	case "count":
		n, err := queue.Count(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("contar cola")
		}
		fmt.Println(n)
	case "retry":
		rep, err := queue.RetryAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("reenviar cola")
		}
		fmt.Printf("confirmadas=%d rechazadas=%d pendientes=%d\n", rep.Sent, rep.Rejected, rep.Pending)
	case "remove":
		if len(os.Args) < 3 {
			log.Fatal().Msg("falta la clave de la operación")
		}
		if err := queue.Remove(ctx, os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("descartar operación")
		}
	case "watch":
		watch(ctx, queue, v.GetString("POS_API_URL"), time.Duration(v.GetInt("WATCH_INTERVAL_SECONDS"))*time.Second, log)
	default:
		fmt.Fprintf(os.Stderr, "comando desconocido: %s\n", os.Args[1])
		os.Exit(2)
	}
}

// watch consulta /health periódicamente y dispara la reconciliación cuando el servidor vuelve
// a responder después de estar caído (o al arrancar).
func watch(ctx context.Context, queue *offlinequeue.Queue, baseURL string, every time.Duration, log *logger.Logger) {
	client := &http.Client{Timeout: 5 * time.Second}
	online := false
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		up := healthy(ctx, client, baseURL)
		if up && !online {
			log.Info().Msg("conexión recuperada, reenviando cola")
			queue.ConnectivityRestored()
		}
		if !up && online {
			log.Warn().Msg("servidor no disponible, las operaciones quedarán en cola")
		}
		online = up
		select {
		case <-ctx.Done():
			_ = queue.Wait(context.Background())
			return
		case <-ticker.C:
		}
	}
}

func healthy(ctx context.Context, client *http.Client, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
