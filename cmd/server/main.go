package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vitals_go/internal/config"
	"vitals_go/internal/server"
	"vitals_go/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "arquivo de configuração (JSON ou YAML)")
	flag.Parse()

	logger.Init()
	defer logger.Sync()

	displayBanner()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}

	setupLogging(cfg.Log)

	logger.Info("Iniciando Vitals Monitor")
	logger.Infof("Configuração carregada: fonte %s, pipeline a %.0f Hz, Redis em %s:%d (habilitado: %v)",
		cfg.Sensor.Source, cfg.Pipeline.PPGSampleRate, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Enabled)

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Erro ao criar servidor", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Infof("Sinal %v recebido, desligando servidor...", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("Servidor encerrado com erro", err)
		}
	}

	timeout := cfg.Server.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
	}

	logger.Info("Servidor encerrado com sucesso")
}

// setupLogging aplica nível e arquivo de log da configuração
func setupLogging(cfg config.LogConfig) {
	if cfg.Level != "" {
		level, err := logger.ParseLevel(cfg.Level)
		if err != nil {
			logger.Warnf("Nível de log inválido %q, mantendo %s", cfg.Level, logger.GetLevel())
		} else {
			logger.SetLevel(level)
		}
	}

	if cfg.File {
		prefix := cfg.Prefix
		if prefix == "" {
			prefix = "vitals"
		}
		if err := logger.EnableFileLogging(cfg.Dir, prefix); err != nil {
			logger.Warnf("Log em arquivo desativado: %v", err)
		}
	}
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
 __     __ _  _              _
 \ \   / /(_)| |_  __ _  ___| |  ___
  \ \ / / | || __|/ _' |/ _ \ | / __|
   \ V /  | || |_| (_| |  __/ | \__ \
    \_/   |_| \__|\__,_|\___|_| |___/   monitor v` + server.Version + `
 `
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
