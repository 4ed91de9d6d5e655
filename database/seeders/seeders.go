package seeders

import (
	"log"
	"madrese_go/database"
	"madrese_go/models"
	"madrese_go/utils"
)

// Seed runs all seeders. Each one is idempotent and skips tables that
// already have rows.
func Seed() {
	log.Println("Starting database seeding...")

	SeedUsers()
	SeedTeachers()
	SeedClasses()
	SeedStudents()

	log.Println("Database seeding completed")
}

// SeedUsers creates the initial admin account
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	hashed, err := utils.HashPassword("admin123456")
	if err != nil {
		log.Println("Failed to hash seed password:", err)
		return
	}

	users := []models.User{
		{
			Username: "admin",
			Password: hashed,
			FullName: "مدیر سامانه",
			Role:     "admin",
			Status:   "active",
		},
		{
			Username: "staff",
			Password: hashed,
			FullName: "کارمند دفتر",
			Role:     "staff",
			Status:   "active",
		},
	}
	if err := database.DB.Create(&users).Error; err != nil {
		log.Println("Failed to seed users:", err)
		return
	}
	log.Printf("Seeded %d users", len(users))
}

// SeedTeachers creates a few teachers
func SeedTeachers() {
	var count int64
	database.DB.Model(&models.Teacher{}).Count(&count)
	if count > 0 {
		log.Println("Teachers already seeded, skipping...")
		return
	}

	teachers := []models.Teacher{
		{
			FirstName:  "زهرا",
			LastName:   "محمدی",
			Phone:      "09121234567",
			Subject:    "ریاضی",
			RowVersion: 1,
			SoftDelete: models.SoftDelete{IsActive: true},
		},
		{
			FirstName:  "علی",
			LastName:   "رضایی",
			Phone:      "09127654321",
			Subject:    "علوم",
			RowVersion: 1,
			SoftDelete: models.SoftDelete{IsActive: true},
		},
	}
	if err := database.DB.Create(&teachers).Error; err != nil {
		log.Println("Failed to seed teachers:", err)
		return
	}
	log.Printf("Seeded %d teachers", len(teachers))
}

// SeedClasses creates sample classes bound to the seeded teachers
func SeedClasses() {
	var count int64
	database.DB.Model(&models.Class{}).Count(&count)
	if count > 0 {
		log.Println("Classes already seeded, skipping...")
		return
	}

	var teachers []models.Teacher
	database.DB.Order("id").Limit(2).Find(&teachers)

	classes := []models.Class{
		{Name: "کلاس اول الف", Grade: "اول", Room: "101", Capacity: 25,
			SoftDelete: models.SoftDelete{IsActive: true}},
		{Name: "کلاس دوم ب", Grade: "دوم", Room: "102", Capacity: 25,
			SoftDelete: models.SoftDelete{IsActive: true}},
	}
	for i := range classes {
		if i < len(teachers) {
			classes[i].TeacherID = &teachers[i].ID
		}
	}
	if err := database.DB.Create(&classes).Error; err != nil {
		log.Println("Failed to seed classes:", err)
		return
	}
	log.Printf("Seeded %d classes", len(classes))
}

// SeedStudents creates sample students enrolled in the seeded classes
func SeedStudents() {
	var count int64
	database.DB.Model(&models.Student{}).Count(&count)
	if count > 0 {
		log.Println("Students already seeded, skipping...")
		return
	}

	var classes []models.Class
	database.DB.Order("id").Limit(2).Find(&classes)
	if len(classes) == 0 {
		log.Println("No classes available, skipping student seed")
		return
	}

	firstClass := classes[0].ID
	secondClass := firstClass
	if len(classes) > 1 {
		secondClass = classes[1].ID
	}

	students := []models.Student{
		{
			FirstName:    "امیر",
			LastName:     "حسینی",
			FatherName:   "رضا",
			NationalCode: "0499370899",
			Grade:        "اول",
			ParentPhone:  "09123334455",
			ClassID:      &firstClass,
			RowVersion:   1,
			SoftDelete:   models.SoftDelete{IsActive: true},
		},
		{
			FirstName:    "فاطمه",
			LastName:     "کریمی",
			FatherName:   "حسین",
			NationalCode: "1234567891",
			Grade:        "دوم",
			ParentPhone:  "09125556677",
			ClassID:      &secondClass,
			RowVersion:   1,
			SoftDelete:   models.SoftDelete{IsActive: true},
		},
	}
	if err := database.DB.Create(&students).Error; err != nil {
		log.Println("Failed to seed students:", err)
		return
	}
	log.Printf("Seeded %d students", len(students))
}
