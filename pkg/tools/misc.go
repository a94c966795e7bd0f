package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abasto-labs/tendero/pkg/catalog"
)

// NewCurrentTime reports the wall clock as HH:MM.
func NewCurrentTime(now func() time.Time) catalog.Tool {
	if now == nil {
		now = time.Now
	}
	return catalog.Tool{
		Name:        "get_current_time",
		Description: "Devuelve la hora actual en formato HH:MM.",
		Parameters:  catalog.ObjectSchema(nil),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			return now().Format("15:04"), nil
		},
	}
}

// Player is the external playback collaborator for the store's speakers.
type Player interface {
	SetVolume(ctx context.Context, percent int) (string, error)
	Play(ctx context.Context, query string) (string, error)
}

// NewSetVolume exposes playback volume control.
func NewSetVolume(player Player) catalog.Tool {
	type params struct {
		Percent int `json:"percent"`
	}
	return catalog.Tool{
		Name:        "set_volume",
		Description: "Ajusta el volumen de la música de la tienda, de 0 a 100.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"percent": {Type: "integer", Description: "Volumen deseado, de 0 a 100."},
		}, "percent"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			if p.Percent < 0 || p.Percent > 100 {
				return "El volumen debe estar entre 0 y 100.", nil
			}
			return player.SetVolume(ctx, p.Percent)
		},
	}
}

// NewPlayTrack exposes playback of a searched track or playlist.
func NewPlayTrack(player Player) catalog.Tool {
	type params struct {
		Query string `json:"query"`
	}
	return catalog.Tool{
		Name:        "play_track",
		Description: "Reproduce una canción, artista o playlist en las bocinas de la tienda.",
		Parameters: catalog.ObjectSchema(map[string]catalog.Property{
			"query": {Type: "string", Description: "Qué reproducir, por ejemplo 'cumbias' o 'Luis Miguel'."},
		}, "query"),
		Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
			var p params
			if err := json.Unmarshal(args, &p); err != nil {
				return "", fmt.Errorf("decode arguments: %w", err)
			}
			return player.Play(ctx, p.Query)
		},
	}
}

// NoopPlayer is the stand-in when no playback account is configured.
type NoopPlayer struct{}

func (NoopPlayer) SetVolume(context.Context, int) (string, error) {
	return "El reproductor de música no está configurado en esta tienda.", nil
}

func (NoopPlayer) Play(context.Context, string) (string, error) {
	return "El reproductor de música no está configurado en esta tienda.", nil
}
