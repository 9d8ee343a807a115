package track

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"waygroup/internal/models"
)

// Writer records accepted local samples as breadcrumb points. Writes are
// batched by the non-blocking write API; failures never reach the caller.
type Writer struct {
	writeAPI api.WriteAPI
	userID   string
	logger   zerolog.Logger
}

func NewWriter(writeAPI api.WriteAPI, userID string, logger zerolog.Logger) *Writer {
	return &Writer{
		writeAPI: writeAPI,
		userID:   userID,
		logger:   logger,
	}
}

func (w *Writer) WriteSample(roomID string, sample models.RawPositionSample) {
	tags := map[string]string{
		"user_id": w.userID,
		"room_id": roomID,
	}

	fields := map[string]interface{}{
		"latitude":  sample.Latitude,
		"longitude": sample.Longitude,
	}
	if sample.Accuracy != nil {
		fields["accuracy"] = *sample.Accuracy
	}
	if sample.Speed != nil {
		fields["speed"] = *sample.Speed
	}
	if sample.Bearing != nil {
		fields["bearing"] = *sample.Bearing
	}

	point := influxdb2.NewPoint(
		"breadcrumb",
		tags,
		fields,
		sample.Timestamp,
	)

	w.writeAPI.WritePoint(point)

	w.logger.Debug().
		Str("room_id", roomID).
		Float64("latitude", sample.Latitude).
		Float64("longitude", sample.Longitude).
		Msg("Added breadcrumb point to influxDB")
}
