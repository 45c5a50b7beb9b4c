package database

import (
	"fmt"
	"log"
	"os"

	"github.com/sahilchouksey/course-market/model"
	"github.com/sahilchouksey/course-market/utils/auth"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedAppSettings(); err != nil {
		return fmt.Errorf("failed to seed app settings: %w", err)
	}

	if err := s.SeedCourses(); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the default admin user
func (s *Seeder) SeedAdminUser() error {
	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin user already exists, skipping...")
		return nil
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️  ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin user creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.User{
		Email:        adminEmail,
		PasswordHash: passwordHash,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin user: %s\n", admin.Email)
	return nil
}

// SeedAppSettings stores the default settings, leaving existing keys untouched
func (s *Seeder) SeedAppSettings() error {
	descriptions := map[string]string{
		model.SettingSiteName:          "Site name shown in the header and emails",
		model.SettingContactEmail:      "Support email address",
		model.SettingContactPhone:      "Support phone / WhatsApp number",
		model.SettingBankName:          "Bank used for manual transfers",
		model.SettingBankAccountNumber: "Account number buyers transfer to",
		model.SettingBankAccountName:   "Account holder name",
		model.SettingCurrency:          "ISO currency code for prices",
		model.SettingMaintenanceMode:   "When true the storefront shows a maintenance page",
	}

	var settings []model.AppSetting
	for key, value := range model.DefaultSettings() {
		settings = append(settings, model.AppSetting{
			Key:         key,
			Value:       value,
			Description: descriptions[key],
			IsPublic:    true,
		})
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&settings)
	if result.Error != nil {
		return result.Error
	}

	log.Printf("✅ Seeded %d app settings\n", result.RowsAffected)
	return nil
}

// SeedCourses creates a small published sample catalog
func (s *Seeder) SeedCourses() error {
	var count int64
	if err := s.db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Courses already exist, skipping...")
		return nil
	}

	courses := []model.Course{
		{
			Title:       "Dasar Pemrograman Go",
			Description: "Belajar sintaks, tipe data, dan concurrency di Go dari nol.",
			Category:    "Programming",
			Level:       model.LevelBeginner,
			Price:       149000,
			Instructor:  "Rina Wijaya",
			Duration:    "6 jam",
			Status:      model.CourseStatusPublished,
			Lessons: []model.Lesson{
				{Title: "Instalasi dan Hello World", Order: 1, DurationMinutes: 15},
				{Title: "Tipe Data dan Variabel", Order: 2, DurationMinutes: 30},
				{Title: "Goroutine dan Channel", Order: 3, DurationMinutes: 45},
			},
		},
		{
			Title:       "Desain REST API",
			Description: "Merancang API yang konsisten, aman, dan mudah dipelihara.",
			Category:    "Backend",
			Level:       model.LevelIntermediate,
			Price:       249000,
			Instructor:  "Budi Santoso",
			Duration:    "8 jam",
			Status:      model.CourseStatusPublished,
			Lessons: []model.Lesson{
				{Title: "Resource dan Endpoint", Order: 1, DurationMinutes: 25},
				{Title: "Autentikasi dengan JWT", Order: 2, DurationMinutes: 40},
			},
		},
		{
			Title:       "PostgreSQL untuk Produksi",
			Description: "Indexing, transaksi, dan tuning query untuk aplikasi nyata.",
			Category:    "Database",
			Level:       model.LevelAdvanced,
			Price:       299000,
			Instructor:  "Sari Lestari",
			Duration:    "10 jam",
			Status:      model.CourseStatusDraft,
		},
	}

	if err := s.db.Create(&courses).Error; err != nil {
		return err
	}

	log.Printf("✅ Created %d courses\n", len(courses))
	return nil
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB) error {
	seeder := NewSeeder(db)
	return seeder.SeedAll()
}
