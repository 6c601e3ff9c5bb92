package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/krs-online-api/internal/models"
	"github.com/noah-isme/krs-online-api/internal/repository"
	"github.com/noah-isme/krs-online-api/migrations"
	"github.com/noah-isme/krs-online-api/pkg/config"
	"github.com/noah-isme/krs-online-api/pkg/database"
	"github.com/noah-isme/krs-online-api/pkg/logger"
)

type seedSection struct {
	class, day, start, end, room, lecturer string
	capacity                               int
}

type seedCourse struct {
	course   models.Course
	sections []seedSection
}

var catalog = []seedCourse{
	{
		course: models.Course{Code: "IF201", Name: "Struktur Data", Credits: 3, Level: 3, Program: "Informatika"},
		sections: []seedSection{
			{"A", "Senin", "08:00", "10:30", "R.301", "Dr. Sari Wulandari", 40},
			{"B", "Rabu", "13:00", "15:30", "R.302", "Dr. Sari Wulandari", 40},
		},
	},
	{
		course: models.Course{Code: "IF203", Name: "Basis Data", Credits: 3, Level: 3, Program: "Informatika"},
		sections: []seedSection{
			{"A", "Selasa", "10:00", "12:30", "Lab 2", "Budi Santoso, M.Kom", 30},
		},
	},
	{
		course: models.Course{Code: "IF205", Name: "Jaringan Komputer", Credits: 2, Level: 3, Program: "Informatika"},
		sections: []seedSection{
			{"A", "Kamis", "08:00", "09:40", "R.204", "Andi Pratama, M.T", 2},
		},
	},
}

func main() {
	adminNIM := flag.String("admin-nim", "admin", "login id of the seeded admin")
	adminEmail := flag.String("admin-email", "admin@krs.local", "email of the seeded admin")
	adminPassword := flag.String("admin-password", "admin123", "password of the seeded admin")
	studentPassword := flag.String("student-password", "student123", "password of the sample students")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.Up(ctx, db.DB, logr); err != nil {
		logr.Fatal("migrate", zap.Error(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
	if err != nil {
		logr.Fatal("hash password", zap.Error(err))
	}
	studentHash, err := bcrypt.GenerateFromPassword([]byte(*studentPassword), bcrypt.DefaultCost)
	if err != nil {
		logr.Fatal("hash password", zap.Error(err))
	}

	users := repository.NewUserRepository(db)
	accounts := []*models.User{
		{
			NIM:          *adminNIM,
			Email:        *adminEmail,
			PasswordHash: string(hash),
			FullName:     "Administrator",
			Role:         models.RoleAdmin,
			Active:       true,
		},
		{
			NIM:          "2201001",
			Email:        "rina.putri@student.krs.local",
			PasswordHash: string(studentHash),
			FullName:     "Rina Putri",
			Program:      strPtr("Informatika"),
			Level:        intPtr(3),
			MaxCredits:   intPtr(models.DefaultMaxCredits),
			Role:         models.RoleStudent,
			Active:       true,
		},
		{
			NIM:          "2201002",
			Email:        "dimas.aji@student.krs.local",
			PasswordHash: string(studentHash),
			FullName:     "Dimas Aji",
			Program:      strPtr("Informatika"),
			Level:        intPtr(3),
			MaxCredits:   intPtr(20),
			Role:         models.RoleStudent,
			Active:       true,
		},
	}
	for _, account := range accounts {
		switch err := users.Create(ctx, account); {
		case errors.Is(err, repository.ErrDuplicate):
			logr.Info("account already present", zap.String("nim", account.NIM))
		case err != nil:
			logr.Fatal("create account", zap.String("nim", account.NIM), zap.Error(err))
		default:
			logr.Info("account created", zap.String("nim", account.NIM), zap.String("role", string(account.Role)))
		}
	}

	courses := repository.NewCourseRepository(db)
	sections := repository.NewSectionRepository(db)
	for _, entry := range catalog {
		course := entry.course
		if err := courses.Create(ctx, &course); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				logr.Info("course already present", zap.String("code", course.Code))
				continue
			}
			logr.Fatal("create course", zap.String("code", course.Code), zap.Error(err))
		}
		for _, s := range entry.sections {
			section := &models.Section{
				CourseID:  course.ID,
				ClassCode: s.class,
				Day:       s.day,
				StartTime: s.start,
				EndTime:   s.end,
				Room:      s.room,
				Lecturer:  s.lecturer,
				Capacity:  s.capacity,
				Active:    true,
			}
			if err := sections.Create(ctx, section); err != nil {
				logr.Fatal("create section", zap.String("course", course.Code), zap.Error(err))
			}
		}
		logr.Info("course seeded", zap.String("code", course.Code), zap.Int("sections", len(entry.sections)))
	}
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }
