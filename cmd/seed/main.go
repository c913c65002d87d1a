// Command seed generates a deterministic farm-survey fixture set: a SQLite
// database with the four per-concern feature tables, a weather-station
// message CSV, and a field-to-station mapping CSV. The generated data carries
// the same defects the real survey export has — Annual_yield and Crop_type
// written into each other's columns, negative elevations, and misspelled crop
// labels — so a full ETL run against it exercises every correction.
//
// Usage:
//
//	go run ./cmd/seed \
//	  -db assets/mn_farm_survey_small.db \
//	  -weather-csv data/fixtures/weather_station_data.csv \
//	  -map-csv data/fixtures/weather_data_field_mapping.csv
//
// Pass -serve to also serve the generated CSVs over HTTP for local ETL runs.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// crops mixes canonical labels with the misspellings and stray whitespace the
// survey entry tool produces.
var crops = []string{
	"cassava", "cassaval", "tea", "teaa", "tea ",
	"wheat", "wheatn", "wheat ", "maize", "rice", "banana", "potato",
}

var messageTemplates = []func(r *rand.Rand) string{
	func(r *rand.Rand) string {
		return fmt.Sprintf("Rainfall: %d mm", 1+r.Intn(40))
	},
	func(r *rand.Rand) string {
		return fmt.Sprintf("Temperature of %.1f C observed", 10+r.Float64()*25)
	},
	func(r *rand.Rand) string {
		return fmt.Sprintf("Pollution_level = %.2f", r.Float64()*5)
	},
	func(r *rand.Rand) string {
		return fmt.Sprintf("Pollution at %.2f", r.Float64()*5)
	},
	func(r *rand.Rand) string {
		return "Station check complete, all sensors nominal"
	},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "assets/mn_farm_survey_small.db", "output path for the SQLite database")
	weatherCSV := flag.String("weather-csv", "data/fixtures/weather_station_data.csv", "output path for the weather message CSV")
	mapCSV := flag.String("map-csv", "data/fixtures/weather_data_field_mapping.csv", "output path for the field-to-station mapping CSV")
	fields := flag.Int("fields", 200, "number of survey fields")
	messages := flag.Int("messages", 500, "number of weather station messages")
	stations := flag.Int("stations", 5, "number of weather stations")
	seed := flag.Int64("seed", 42, "PRNG seed")
	serve := flag.String("serve", "", "optional address to serve the generated CSVs on (e.g. :9000)")
	flag.Parse()

	r := rand.New(rand.NewSource(*seed))

	if err := seedDatabase(*dbPath, *fields, r); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	log.Printf("wrote %s: %d fields", *dbPath, *fields)

	if err := writeWeatherCSV(*weatherCSV, *messages, *stations, r); err != nil {
		return fmt.Errorf("write weather csv: %w", err)
	}
	log.Printf("wrote %s: %d messages", *weatherCSV, *messages)

	if err := writeMappingCSV(*mapCSV, *fields, *stations, r); err != nil {
		return fmt.Errorf("write mapping csv: %w", err)
	}
	log.Printf("wrote %s", *mapCSV)

	if *serve != "" {
		dir := filepath.Dir(*weatherCSV)
		log.Printf("serving %s on %s", dir, *serve)
		return http.ListenAndServe(*serve, http.FileServer(http.Dir(dir)))
	}
	return nil
}

func seedDatabase(path string, fields int, r *rand.Rand) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// Regenerate from scratch so repeated runs stay deterministic.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	db.MustExec(`CREATE TABLE geographic_features (
		Field_ID INTEGER PRIMARY KEY,
		Elevation REAL,
		Latitude REAL,
		Longitude REAL,
		Slope REAL
	)`)
	db.MustExec(`CREATE TABLE weather_features (
		Field_ID INTEGER PRIMARY KEY,
		Rainfall REAL,
		Min_temperature_C REAL,
		Max_temperature_C REAL,
		Ave_temps REAL
	)`)
	db.MustExec(`CREATE TABLE soil_and_crop_features (
		Field_ID INTEGER PRIMARY KEY,
		Soil_fertility REAL,
		Soil_type TEXT,
		pH REAL
	)`)
	db.MustExec(`CREATE TABLE farm_management_features (
		Field_ID INTEGER PRIMARY KEY,
		Pollution_level REAL,
		Plot_size REAL,
		Annual_yield TEXT,
		Crop_type REAL
	)`)

	soils := []string{"Sandy", "Loamy", "Silt", "Clay", "Peaty", "Rocky"}

	tx := db.MustBegin()
	for id := 1; id <= fields; id++ {
		elevation := r.Float64() * 1500
		// Roughly a third of elevations carry the export's sign-flip bug.
		if r.Intn(3) == 0 {
			elevation = -elevation
		}
		tx.MustExec(`INSERT INTO geographic_features VALUES (?, ?, ?, ?, ?)`,
			id, elevation, -5+r.Float64()*10, 30+r.Float64()*10, r.Float64()*15)
		tx.MustExec(`INSERT INTO weather_features VALUES (?, ?, ?, ?, ?)`,
			id, r.Float64()*1800, 5+r.Float64()*10, 20+r.Float64()*15, 15+r.Float64()*10)
		tx.MustExec(`INSERT INTO soil_and_crop_features VALUES (?, ?, ?, ?)`,
			id, r.Float64(), soils[r.Intn(len(soils))], 4+r.Float64()*4)
		// The export writes the crop label into Annual_yield and the yield
		// into Crop_type. The ETL swaps them back.
		tx.MustExec(`INSERT INTO farm_management_features VALUES (?, ?, ?, ?, ?)`,
			id, r.Float64()*5, 0.5+r.Float64()*4,
			crops[r.Intn(len(crops))], r.Float64()*2)
	}
	return tx.Commit()
}

func writeWeatherCSV(path string, messages, stations int, r *rand.Rand) error {
	records := [][]string{{"Weather_station_ID", "Message"}}
	for i := 0; i < messages; i++ {
		station := strconv.Itoa(r.Intn(stations))
		msg := messageTemplates[r.Intn(len(messageTemplates))](r)
		records = append(records, []string{station, msg})
	}
	return writeCSV(path, records)
}

func writeMappingCSV(path string, fields, stations int, r *rand.Rand) error {
	records := [][]string{{"Field_ID", "Weather_station_ID"}}
	for id := 1; id <= fields; id++ {
		// A handful of fields have no station; the ETL's left join keeps
		// them with null station cells.
		if r.Intn(20) == 0 {
			continue
		}
		records = append(records, []string{strconv.Itoa(id), strconv.Itoa(r.Intn(stations))})
	}
	return writeCSV(path, records)
}

func writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}
