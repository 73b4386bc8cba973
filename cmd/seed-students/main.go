package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/skylearn/assess-backend/internal/config"
	"github.com/skylearn/assess-backend/internal/database"
	"github.com/skylearn/assess-backend/internal/logger"
	"github.com/skylearn/assess-backend/internal/model"
	"github.com/skylearn/assess-backend/internal/repository"
	"github.com/skylearn/assess-backend/internal/service"
)

func main() {
	var grade, section, password string
	flag.StringVar(&grade, "grade", "10", "Grade to seed students into")
	flag.StringVar(&section, "section", "A", "Section to seed students into")
	flag.StringVar(&password, "password", "changeme123", "Initial password for every seeded student")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	studentRepo := repository.NewStudentRepository(pool)
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService)

	names := []string{
		"Alice Johnson", "Brian Carter", "Chloe Martinez", "Daniel Kim", "Emma Wilson",
		"Felix Nguyen", "Grace Patel", "Henry Okafor", "Isla Thompson", "Jack Rivera",
		"Kara Singh", "Liam Brooks", "Mia Hernandez", "Noah Bennett", "Olivia Chen",
		"Peter Alvarez", "Quinn Foster", "Ruby Sanders", "Samuel Ortiz", "Tara Mitchell",
		"Umar Hassan", "Violet Murphy", "Wesley Park", "Ximena Flores", "Yusuf Ali",
		"Zoe Campbell", "Aaron Diaz", "Bella Reed", "Caleb Ward", "Daisy Hughes",
		"Ethan Price", "Faith Coleman", "Gavin Torres", "Hana Sato", "Ian Douglas",
		"Jade Morgan", "Kyle Barnes", "Lena Fischer", "Marcus Bell", "Nina Petrov",
		"Owen Gallagher", "Priya Sharma", "Rhys Evans", "Sofia Romano", "Theo Lambert",
		"Uma Desai", "Victor Cruz", "Willow Grant", "Xavier Moss", "Yara Haddad",
	}

	fmt.Printf("=== Seeding %d Students into grade %s section %s ===\n", len(names), grade, section)

	successCount := 0
	for i, name := range names {
		age := 15 + i%3
		gender := "male"
		if i%2 != 0 {
			gender = "female"
		}

		req := &model.CreateStudentRequest{
			StudentCode: fmt.Sprintf("STU%s%s%03d", grade, section, i+1),
			Name:        name,
			Grade:       grade,
			Section:     section,
			Gender:      gender,
			Age:         &age,
			Password:    password,
		}

		if _, err := studentService.Create(ctx, req); err != nil {
			fmt.Printf("Error creating student %s (%s): %v\n", req.Name, req.StudentCode, err)
			continue
		}

		successCount++
		if successCount%10 == 0 {
			fmt.Printf("Created %d students...\n", successCount)
		}
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d students.\n", successCount, len(names))
}
