package main

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

// Upstream de validação: responde 200 em qualquer path para que o gateway
// possa ser exercitado categoria por categoria.
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "upstream").Logger()

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Msg("upstream hit")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok " + r.URL.Path + "\n"))
	})

	logger.Info().Str("addr", addr).Msg("upstream listening")
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("upstream failed")
	}
}
