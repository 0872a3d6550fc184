package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/directory"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

var now = time.Now

type LocationReader interface {
	Get(ctx context.Context, busRef string) (types.Location, error)
	List(ctx context.Context) ([]types.Location, error)
}

type Directory interface {
	Resolve(ctx context.Context, code string) (types.Bus, error)
}

type Handler struct {
	Locations LocationReader
	Directory Directory
	Freshness live.Freshness
}

func NewHandler(locations LocationReader, dir Directory, freshness live.Freshness) *Handler {
	return &Handler{Locations: locations, Directory: dir, Freshness: freshness}
}

func (h *Handler) name(ctx context.Context, loc types.Location) string {
	if loc.BusCode == "" || h.Directory == nil {
		return ""
	}
	bus, err := h.Directory.Resolve(ctx, loc.BusCode)
	if err != nil {
		return ""
	}
	return bus.DisplayName()
}

// active reports whether a location belongs in a viewer's initial working set.
func (h *Handler) active(loc types.Location, at time.Time) bool {
	return loc.Status == live.StatusRunning && h.Freshness.IsFresh(loc.CapturedAt, at)
}

// GetLocations serves the full snapshot. With ?active=true only running buses
// inside the purge window are returned.
func (h *Handler) GetLocations(c *gin.Context) {
	ctx := c.Request.Context()

	onlyActive := false
	if v := c.Query("active"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			onlyActive = parsed
		}
	}

	locations, err := h.Locations.List(ctx)
	if err != nil {
		log.WithField("err", err).Error("Не удалось получить местоположения")
		c.JSON(http.StatusInternalServerError, live.SnapshotResponse{Success: false, Data: []live.SnapshotEntry{}, Error: err.Error()})
		return
	}

	at := now()
	data := make([]live.SnapshotEntry, 0, len(locations))
	for _, loc := range locations {
		if onlyActive && !h.active(loc, at) {
			continue
		}
		data = append(data, loc.ToSnapshot(h.name(ctx, loc)))
	}

	c.JSON(http.StatusOK, live.SnapshotResponse{Success: true, Data: data})
}

// GetLocation serves one bus by its short code.
func (h *Handler) GetLocation(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("bus")

	bus, err := h.Directory.Resolve(ctx, code)
	if errors.Is(err, directory.ErrUnknownBus) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	loc, err := h.Locations.Get(ctx, bus.Ref)
	if errors.Is(err, types.ErrLocationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": loc.ToSnapshot(bus.DisplayName())})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
