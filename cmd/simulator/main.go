// Command simulator posts a stream of boom lift form submissions to the API,
// for demos and load testing.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/boomlift-maintenance/internal/models"
)

var sites = []string{"Lakeside Tower", "Harbor Point", "North Yard", "Riverside Lofts", "Builder: Kestrel Homes"}

var technicians = []string{"Jordan", "Riley", "Sky", "Morgan", "Casey"}

const oilChangeInterval = 250

type settings struct {
	apiURL    string
	token     string
	liftCount int
	interval  time.Duration
}

func loadSettings() settings {
	s := settings{
		apiURL:    os.Getenv("API_BASE_URL"),
		token:     os.Getenv("SIM_AUTH_TOKEN"),
		liftCount: 5,
		interval:  2 * time.Second,
	}
	if s.apiURL == "" {
		s.apiURL = "http://localhost:8080/api"
	}
	if v := os.Getenv("LIFT_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.liftCount = n
		}
	}
	if v := os.Getenv("SIM_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			s.interval = time.Duration(n) * time.Second
		}
	}
	return s
}

// liftState is the simulated hour meter of one boom lift.
type liftState struct {
	AssetID  string
	Site     string
	Hours    int
	SinceOil int
	rng      *rand.Rand
}

func newLift(i int, seed int64) *liftState {
	rng := rand.New(rand.NewSource(seed))
	return &liftState{
		AssetID:  fmt.Sprintf("BL-%03d", i+1),
		Site:     sites[i%len(sites)],
		Hours:    100 + rng.Intn(900),
		SinceOil: rng.Intn(oilChangeInterval),
		rng:      rng,
	}
}

// next advances the hour meter and returns the form fields of the visit.
// Hours never go down. A mechanic visit changes the oil once the lift is due.
func (l *liftState) next() models.Fields {
	worked := 1 + l.rng.Intn(12)
	l.Hours += worked
	l.SinceOil += worked

	fields := models.Fields{
		models.FieldSubmitterName:       technicians[l.rng.Intn(len(technicians))],
		models.FieldRole:                string(models.RoleInstaller),
		models.FieldAssetID:             l.AssetID,
		models.FieldHours:               l.Hours,
		models.FieldSiteOrBuilder:       l.Site,
		models.FieldOilLevel:            []string{"Full", "Half", "Low"}[l.rng.Intn(3)],
		models.FieldGasLevel:            []string{"Full", "3/4", "1/2", "1/4"}[l.rng.Intn(4)],
		models.FieldHoursSinceOilChange: l.SinceOil,
	}
	if l.SinceOil > oilChangeInterval-10 {
		fields[models.FieldRole] = string(models.RoleMechanic)
		fields[models.FieldOilChange] = true
		fields[models.FieldOilChangeCost] = 80 + l.rng.Intn(40)
		fields[models.FieldMaintenanceWork] = "Oil Change"
		l.SinceOil = 0
		fields[models.FieldHoursSinceOilChange] = 0
	}
	return fields
}

func newClient(s settings) *resty.Client {
	client := resty.New().
		SetBaseURL(s.apiURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")
	if s.token != "" {
		client.SetAuthToken(s.token)
	}
	return client
}

func submit(ctx context.Context, client *resty.Client, fields models.Fields) error {
	resp, err := client.R().SetContext(ctx).SetBody(fields).Post("/records")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("submission failed with status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func simulate(ctx context.Context, client *resty.Client, l *liftState, interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		fields := l.next()
		entry := log.WithFields(log.Fields{"boom_lift_id": l.AssetID, "hours": l.Hours})
		if err := submit(ctx, client, fields); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			entry.WithError(err).Error("Failed to submit reading")
			continue
		}
		entry.Info("Submitted reading")
	}
}

func main() {
	s := loadSettings()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"lifts":    s.liftCount,
		"api_url":  s.apiURL,
		"interval": s.interval,
	}).Info("Starting boom lift simulation")
	if s.token == "" {
		log.Warn("SIM_AUTH_TOKEN is not set, submissions will be rejected")
	}

	client := newClient(s)
	seed := time.Now().UnixNano()
	var wg sync.WaitGroup
	for i := 0; i < s.liftCount; i++ {
		wg.Add(1)
		go func(l *liftState) {
			defer wg.Done()
			simulate(ctx, client, l, s.interval)
		}(newLift(i, seed+int64(i)))
	}
	wg.Wait()
	log.Info("Simulation stopped")
}
