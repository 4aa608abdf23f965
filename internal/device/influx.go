package device

import (
	"context"
	"fmt"
	"log"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/AndySymons/GAIL-Garden-irrigation-system/internal/model"
)

// InfluxMoistureSource reads the latest soil moisture per zone from the
// InfluxDB bucket the sensor platform writes into. It is an alternative to
// the MQTT cache for deployments where readings land in Influx first.
type InfluxMoistureSource struct {
	client      influxdb2.Client
	org         string
	bucket      string
	measurement string
	maxAge      time.Duration
	timeout     time.Duration
}

func NewInfluxMoistureSource(client influxdb2.Client, org, bucket, measurement string) *InfluxMoistureSource {
	if measurement == "" {
		measurement = "soil_moisture"
	}
	return &InfluxMoistureSource{
		client:      client,
		org:         org,
		bucket:      bucket,
		measurement: measurement,
		maxAge:      2 * time.Hour,
		timeout:     3 * time.Second,
	}
}

// Sensor returns the MoistureSensor view for one zone.
func (s *InfluxMoistureSource) Sensor(zone string) MoistureSensor {
	return &influxSensor{source: s, zone: zone}
}

func (s *InfluxMoistureSource) buildFlux(zone string) string {
	return fmt.Sprintf(`
from(bucket: %q)
  |> range(start: -%dm)
  |> filter(fn: (r) => r._measurement == %q and r.zone == %q)
  |> filter(fn: (r) => r._field == "moisture")
  |> last()
`, s.bucket, int(s.maxAge.Minutes()), s.measurement, zone)
}

// read queries the last reading for a zone. Failures and stale data report
// as 0, which the engine treats as a non-functional probe: the sensor
// contract never errors.
func (s *InfluxMoistureSource) read(ctx context.Context, zone string) int {
	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.QueryAPI(s.org).Query(qctx, s.buildFlux(zone))
	if err != nil {
		log.Printf("moisture: influx query for zone %q failed: %v", zone, err)
		return 0
	}
	defer func() {
		_ = res.Close()
	}()

	for res.Next() {
		switch v := res.Record().Value().(type) {
		case float64:
			return model.ClampMoisture(int(v))
		case int64:
			return model.ClampMoisture(int(v))
		}
	}
	if res.Err() != nil {
		log.Printf("moisture: influx result for zone %q: %v", zone, res.Err())
	}
	return 0
}

type influxSensor struct {
	source *InfluxMoistureSource
	zone   string
}

func (s *influxSensor) ReadMoisture(ctx context.Context) int {
	return s.source.read(ctx, s.zone)
}
