// Command widget is a terminal rendition of the weather widget: it resolves
// a position, then keeps the displayed snapshot current through the same
// debounced watcher the browser widget uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weatherwidget.app/client"
	apperrors "weatherwidget.app/errors"
	"weatherwidget.app/retry"
)

type flagSource struct {
	pos client.Position
	set bool
}

func (s flagSource) CurrentPosition(ctx context.Context) (client.Position, error) {
	if !s.set {
		return client.Position{}, apperrors.New(apperrors.GeolocationUnavailable, "no coordinates supplied")
	}
	return s.pos, nil
}

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "base URL of the weather API")
	lat := flag.Float64("lat", math.NaN(), "latitude to watch")
	lon := flag.Float64("lon", math.NaN(), "longitude to watch")
	flag.Parse()

	apiClient := client.NewAPIClient(*apiURL, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	cfg, err := apiClient.WidgetConfig(ctx)
	cancel()
	if err != nil {
		slog.Error("Failed to load widget configuration", "error", err)
		os.Exit(1)
	}
	if !cfg.Widget.Enabled {
		fmt.Println("Weather widget is disabled.")
		return
	}

	source := flagSource{
		pos: client.Position{Lat: *lat, Lon: *lon},
		set: !math.IsNaN(*lat) && !math.IsNaN(*lon),
	}
	fallback := client.Position{
		Lat: cfg.DefaultLocation.Lat,
		Lon: cfg.DefaultLocation.Lon,
	}

	pos, locErr := client.ResolveLocation(context.Background(), source, fallback)
	if locErr != nil {
		fmt.Println(apperrors.UserMessageOf(locErr))
	}

	watcher := client.NewWatcher(apiClient, client.Options{
		Retry:               retry.DefaultPolicy(),
		AutoRefreshInterval: time.Duration(cfg.Widget.AutoRefreshIntervalSeconds) * time.Second,
	})
	defer watcher.Close()

	watcher.UpdateCoordinates(pos)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case update, ok := <-watcher.Updates():
			if !ok {
				return
			}
			if update.Err != nil {
				fmt.Println(apperrors.UserMessageOf(update.Err))
				continue
			}
			s := update.Snapshot
			fmt.Printf("%s: %d° %s (%s), humidity %d%%, wind %.1f m/s [%s]\n",
				s.Location, s.Temperature, s.Condition, s.Description,
				s.Humidity, s.WindSpeed, s.LastUpdated)
		case <-signals:
			return
		}
	}
}
