// Command seed imports catalog reference data: ingredients from a CSV
// file with "name,measurement_unit" rows and a default set of tags.
// Existing rows are kept; duplicates in the input are skipped.
package main

import (
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodgram/backend/config"
	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
)

var defaultTags = []models.Tag{
	{Name: "Breakfast", Color: "#E26C2D", Slug: "breakfast"},
	{Name: "Lunch", Color: "#49B64E", Slug: "lunch"},
	{Name: "Dinner", Color: "#8775D2", Slug: "dinner"},
}

func main() {
	ingredientsPath := flag.String("ingredients", "data/ingredients.csv", "path to the ingredients CSV file")
	skipTags := flag.Bool("skip-tags", false, "do not create the default tags")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	count, err := importIngredients(db, *ingredientsPath)
	if err != nil {
		log.Fatalf("Failed to import ingredients: %v", err)
	}
	log.Printf("Imported %d ingredients", count)

	if !*skipTags {
		for _, tag := range defaultTags {
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
				log.Fatalf("Failed to create tag %s: %v", tag.Slug, err)
			}
		}
		log.Printf("Ensured %d default tags", len(defaultTags))
	}
}

func importIngredients(db *gorm.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, err
		}

		ingredient := models.Ingredient{Name: record[0], MeasurementUnit: record[1]}
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&ingredient)
		if result.Error != nil {
			return count, result.Error
		}
		count += int(result.RowsAffected)
	}
	return count, nil
}
