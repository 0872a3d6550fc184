package api

import (
	"context"
	"net/http"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
	"google.golang.org/protobuf/proto"
)

const kphToMps = 1 / 3.6

// BuildVehiclePositions renders running, fresh locations as a GTFS-Realtime feed.
func BuildVehiclePositions(locations []types.Location, names map[string]string, freshness live.Freshness, at time.Time) *gtfs.FeedMessage {
	feed := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(at.Unix())),
		},
	}

	for _, loc := range locations {
		if loc.Status != live.StatusRunning || !freshness.IsFresh(loc.CapturedAt, at) {
			continue
		}
		id := loc.BusCode
		if id == "" {
			id = loc.BusRef
		}

		vehicle := &gtfs.VehiclePosition{
			Vehicle: &gtfs.VehicleDescriptor{
				Id:    proto.String(id),
				Label: proto.String(names[id]),
			},
			Position: &gtfs.Position{
				Latitude:  proto.Float32(float32(loc.Latitude)),
				Longitude: proto.Float32(float32(loc.Longitude)),
				Speed:     proto.Float32(float32(loc.Speed * kphToMps)),
			},
			Timestamp:     proto.Uint64(uint64(loc.CapturedAt.Unix())),
			CurrentStatus: gtfs.VehiclePosition_IN_TRANSIT_TO.Enum(),
		}
		if loc.RouteRef != "" {
			vehicle.Trip = &gtfs.TripDescriptor{RouteId: proto.String(loc.RouteRef)}
		}

		feed.Entity = append(feed.Entity, &gtfs.FeedEntity{
			Id:      proto.String(id),
			Vehicle: vehicle,
		})
	}
	return feed
}

func (h *Handler) GetVehiclePositions(c *gin.Context) {
	ctx := c.Request.Context()

	locations, err := h.Locations.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	feed := BuildVehiclePositions(locations, h.names(ctx, locations), h.Freshness, now())
	body, err := proto.Marshal(feed)
	if err != nil {
		log.WithField("err", err).Error("Ошибка сериализации GTFS-RT")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/x-protobuf", body)
}

func (h *Handler) names(ctx context.Context, locations []types.Location) map[string]string {
	out := make(map[string]string, len(locations))
	for _, loc := range locations {
		if name := h.name(ctx, loc); name != "" {
			out[loc.BusCode] = name
		}
	}
	return out
}
