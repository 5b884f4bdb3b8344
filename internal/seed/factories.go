package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"campusfind/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and by tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

var itemTypes = []string{
	"phone", "laptop", "keys", "wallet", "student ID", "backpack", "jacket",
	"umbrella", "water bottle", "bike", "calculator", "headphones", "textbook",
	"glasses", "charger",
}

var campusLocations = []string{
	"Main Library", "Student Union", "Cafeteria", "Gym", "Lecture Hall A",
	"Lecture Hall B", "Science Building", "Dorm 3 lobby", "Bus stop north",
	"Parking lot C", "Computer lab", "Music hall", "Football field",
}

// spreadCreatedAt produces a timestamp in the past MaxDays window so seeded
// feeds do not all land on the same instant.
func (f *Factory) spreadCreatedAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour -
		time.Duration(minsBack)*time.Minute)
}

// CreateUsers creates count accounts. The first accounts are the stable
// admin users; the rest are random members.
func (f *Factory) CreateUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.DefaultCost)

	for _, name := range adminUsernames {
		if len(users) >= count {
			break
		}
		user := models.User{
			Username: name,
			Email:    fmt.Sprintf("%s@campusfind.example", name),
			Password: string(hashedPassword),
			FullName: "Lost & Found Staff",
			Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", name),
			Roles:    models.RoleList{models.RoleAdmin},
		}
		if err := f.db.Create(&user).Error; err == nil {
			users = append(users, user)
		}
	}

	for i := len(users); i < count; i++ {
		first := gofakeit.FirstName()
		last := gofakeit.LastName()
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)

		user := models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@campusfind.example", username),
			Password: string(hashedPassword),
			FullName: fmt.Sprintf("%s %s", first, last),
			Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		}
		if err := f.db.Create(&user).Error; err != nil {
			log.Printf("Failed to create user %s: %v", username, err)
			continue
		}
		users = append(users, user)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}

	return users, nil
}

// BuildPost constructs an item report without persisting it.
func (f *Factory) BuildPost(owner *models.User, overrides ...func(*models.Post)) *models.Post {
	category := models.CategoryLost
	verb := "Lost"
	if f.rng.Intn(2) == 0 {
		category = models.CategoryFound
		verb = "Found"
	}
	itemType := itemTypes[f.rng.Intn(len(itemTypes))]
	location := campusLocations[f.rng.Intn(len(campusLocations))]

	post := &models.Post{
		OwnerID:     owner.ID,
		Category:    category,
		Title:       fmt.Sprintf("%s: %s near %s", verb, itemType, location),
		Description: gofakeit.Paragraph(1, 3, 8, " "),
		ItemType:    itemType,
		Location:    location,
		Status:      f.randomStatus(),
		Author: models.AuthorSnapshot{
			FullName: owner.FullName,
			Avatar:   owner.Avatar,
			Roles:    owner.Roles,
		},
		CreatedAt: f.spreadCreatedAt(),
	}

	// Completed reports carry the return flag that produced them; a slice of
	// approved ones record a failed owner search.
	if post.Status == models.StatusCompleted {
		post.ReturnStatus = models.Returned
	} else if post.Status == models.StatusApproved && f.rng.Float32() < 0.1 {
		post.ReturnStatus = models.ReturnNotFound
	} else {
		post.ReturnStatus = models.ReturnNone
	}

	if f.rng.Float32() < 0.5 {
		numImages := 1 + f.rng.Intn(3)
		for p := 0; p < numImages; p++ {
			post.Images = append(post.Images, models.PostImage{
				URL:      fmt.Sprintf("https://picsum.photos/seed/%s/800/800", uuid.NewString()),
				Position: p,
			})
		}
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// randomStatus skews towards approved so the public feed looks alive.
func (f *Factory) randomStatus() models.PostStatus {
	roll := f.rng.Float32()
	switch {
	case roll < 0.6:
		return models.StatusApproved
	case roll < 0.75:
		return models.StatusPending
	case roll < 0.85:
		return models.StatusRejected
	default:
		return models.StatusCompleted
	}
}

// CreatePosts persists count reports owned by random users.
func (f *Factory) CreatePosts(users []models.User, count int) ([]models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}
	posts := make([]models.Post, 0, count)

	for i := 0; i < count; i++ {
		owner := users[f.rng.Intn(len(users))]
		post := f.BuildPost(&owner)
		if err := f.db.Create(post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, *post)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d posts...", i)
		}
	}

	return posts, nil
}

// CreateLikes sprinkles likes over approved reports. The unique index makes
// repeated picks harmless.
func (f *Factory) CreateLikes(users []models.User, posts []models.Post) error {
	if len(users) == 0 || len(posts) == 0 {
		return nil
	}
	for i := range posts {
		if posts[i].Status != models.StatusApproved {
			continue
		}
		numLikes := f.rng.Intn(len(users))
		for j := 0; j < numLikes; j++ {
			user := users[f.rng.Intn(len(users))]
			like := models.Like{UserID: user.ID, PostID: posts[i].ID}
			// Duplicate picks violate the unique index; skip them.
			_ = f.db.Create(&like).Error
		}
	}
	return nil
}

var contactSubjects = []string{
	"Lost my student ID", "Found keys at the gym", "Question about pickup hours",
	"Wrong item in my report", "How long do you keep items?", "Bike rack question",
}

// BuildContactThread constructs a support thread. requester may be nil for an
// anonymous walk-in.
func (f *Factory) BuildContactThread(requester *models.User) *models.Contact {
	contact := &models.Contact{
		Subject:   contactSubjects[f.rng.Intn(len(contactSubjects))],
		Message:   gofakeit.Paragraph(1, 2, 10, " "),
		Status:    models.ContactStatusNew,
		CreatedAt: f.spreadCreatedAt(),
	}
	if requester != nil {
		id := requester.ID
		contact.RequesterUserID = &id
		contact.RequesterName = requester.FullName
		contact.RequesterEmail = requester.Email
	} else {
		contact.RequesterName = gofakeit.Name()
		contact.RequesterEmail = gofakeit.Email()
		contact.RequesterPhone = gofakeit.Phone()
	}
	return contact
}

// CreateContactThreads persists count threads, roughly a third anonymous,
// and gives some of them a short staff/requester exchange.
func (f *Factory) CreateContactThreads(users []models.User, count int) ([]models.Contact, error) {
	var admin *models.User
	for i := range users {
		if users[i].Roles.Has(models.RoleAdmin) {
			admin = &users[i]
			break
		}
	}

	contacts := make([]models.Contact, 0, count)
	for i := 0; i < count; i++ {
		var requester *models.User
		if len(users) > 0 && f.rng.Intn(3) != 0 {
			requester = &users[f.rng.Intn(len(users))]
		}

		contact := f.BuildContactThread(requester)
		if err := f.db.Create(contact).Error; err != nil {
			return nil, err
		}

		if admin != nil && f.rng.Intn(2) == 0 {
			if err := f.appendExchange(contact, requester, admin); err != nil {
				return nil, err
			}
		}
		contacts = append(contacts, *contact)
	}
	return contacts, nil
}

// appendExchange adds a staff reply, sometimes answered by the requester, and
// moves the thread status forward the way the live flow would.
func (f *Factory) appendExchange(contact *models.Contact, requester, admin *models.User) error {
	staffReply := models.ContactReply{
		UID:          uuid.NewString(),
		ContactID:    contact.ID,
		Sender:       models.SenderAdmin,
		SenderID:     admin.ID,
		SenderName:   admin.FullName,
		SenderAvatar: admin.Avatar,
		Message:      gofakeit.Sentence(12),
	}
	if err := f.db.Create(&staffReply).Error; err != nil {
		return err
	}
	if err := f.db.Model(contact).Update("status", models.ContactStatusReplied).Error; err != nil {
		return err
	}
	contact.Status = models.ContactStatusReplied

	if requester != nil && f.rng.Intn(2) == 0 {
		userReply := models.ContactReply{
			UID:          uuid.NewString(),
			ContactID:    contact.ID,
			Sender:       models.SenderUser,
			SenderID:     requester.ID,
			SenderName:   requester.FullName,
			SenderAvatar: requester.Avatar,
			Message:      gofakeit.Sentence(8),
		}
		if err := f.db.Create(&userReply).Error; err != nil {
			return err
		}
	}
	return nil
}
