// Command admin manages staff roles and contact blocks from the terminal.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"campusfind/internal/config"
	"campusfind/internal/database"
	"campusfind/internal/models"

	"gorm.io/gorm"
)

const usageText = `usage: go run ./cmd/admin/main.go <command> [args]

  promote <user_id>    grant the admin role
  demote <user_id>     revoke the admin role
  block <user_id>      block a member from contacting staff
  unblock <user_id>    lift a contact block
  list-admins          list all staff accounts`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usageText)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	switch cmd := os.Args[1]; cmd {
	case "promote":
		setAdminRole(db, requireUserID(), true)
	case "demote":
		setAdminRole(db, requireUserID(), false)
	case "block":
		setContactBlock(db, requireUserID(), true)
	case "unblock":
		setContactBlock(db, requireUserID(), false)
	case "list-admins":
		listAdmins(db)
	default:
		fmt.Printf("unknown command %q\n%s\n", cmd, usageText)
		os.Exit(1)
	}
}

func requireUserID() uint {
	if len(os.Args) < 3 {
		fmt.Println(usageText)
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || id == 0 {
		log.Fatalf("invalid user id %q", os.Args[2])
	}
	return uint(id)
}

func loadUser(db *gorm.DB, userID uint) models.User {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("user %d not found", userID)
		}
		log.Fatalf("database error: %v", err)
	}
	return user
}

func setAdminRole(db *gorm.DB, userID uint, grant bool) {
	user := loadUser(db, userID)

	if grant {
		if user.Roles.Has(models.RoleAdmin) {
			fmt.Printf("%s (ID %d) is already an admin\n", user.Username, user.ID)
			return
		}
		user.Roles = append(user.Roles, models.RoleAdmin)
	} else {
		if !user.Roles.Has(models.RoleAdmin) {
			fmt.Printf("%s (ID %d) is not an admin\n", user.Username, user.ID)
			return
		}
		remaining := make(models.RoleList, 0, len(user.Roles))
		for _, role := range user.Roles {
			if role != models.RoleAdmin {
				remaining = append(remaining, role)
			}
		}
		user.Roles = remaining
	}

	if err := db.Model(&user).Update("roles", user.Roles).Error; err != nil {
		log.Fatalf("update roles: %v", err)
	}
	if grant {
		fmt.Printf("promoted %s (ID %d) to admin\n", user.Username, user.ID)
	} else {
		fmt.Printf("demoted %s (ID %d) from admin\n", user.Username, user.ID)
	}
}

func setContactBlock(db *gorm.DB, userID uint, blocked bool) {
	user := loadUser(db, userID)
	if err := db.Model(&user).Update("blocked_from_contact", blocked).Error; err != nil {
		log.Fatalf("update contact block: %v", err)
	}
	if blocked {
		fmt.Printf("%s (ID %d) is now blocked from contacting staff\n", user.Username, user.ID)
	} else {
		fmt.Printf("%s (ID %d) may contact staff again\n", user.Username, user.ID)
	}
}

func listAdmins(db *gorm.DB) {
	// Roles are stored as a JSON array; filter in memory rather than
	// depending on dialect-specific JSON operators.
	var users []models.User
	if err := db.Find(&users).Error; err != nil {
		log.Fatalf("fetch users: %v", err)
	}

	count := 0
	for _, user := range users {
		if !user.Roles.Has(models.RoleAdmin) {
			continue
		}
		count++
		fmt.Printf("ID %d  %s  %s\n", user.ID, user.Username, user.Email)
	}
	if count == 0 {
		fmt.Println("no admins found")
	}
}
