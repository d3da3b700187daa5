package main

import (
	"fmt"
	"os"

	"github.com/clinreach/clinreach/internal/config"
	"github.com/clinreach/clinreach/internal/models"
	"github.com/clinreach/clinreach/internal/utils"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := models.InitDB(&cfg.Database); err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	db := models.GetDB()

	var admin models.User
	if err := db.Where("username = ?", "admin").First(&admin).Error; err != nil {
		fmt.Printf("Admin user not found: %v\n", err)
		os.Exit(1)
	}

	newPassword := "admin"
	if len(os.Args) > 1 {
		newPassword = os.Args[1]
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		fmt.Printf("Failed to hash password: %v\n", err)
		os.Exit(1)
	}

	if err := db.Model(&admin).Updates(map[string]interface{}{
		"password":  hashed,
		"is_active": true,
	}).Error; err != nil {
		fmt.Printf("Failed to update admin user: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Admin password has been reset.")
	fmt.Println("Usage: go run scripts/reset_admin_password.go [new_password]")
}
