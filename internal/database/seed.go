package database

import (
	"log"
	"time"

	"github.com/thevault-app/thevault/internal/models"
	"gorm.io/gorm"
)

// SeedContent populates the prompt and spark catalogs.
// Idempotent: prompts are matched by active date, sparks by text+category.
func SeedContent(db *gorm.DB) error {
	if err := seedPrompts(db); err != nil {
		return err
	}
	return seedSparks(db)
}

type promptSeed struct {
	text     string
	category string
}

// seedPrompts assigns one prompt per day starting from today so a fresh
// install has a populated daily cycle immediately.
func seedPrompts(db *gorm.DB) error {
	seeds := []promptSeed{
		{"What's one small thing I did recently that made you smile?", models.VibeWholesome},
		{"Describe your perfect lazy Sunday with me.", models.VibeWholesome},
		{"What's a song that reminds you of us?", models.VibeWholesome},
		{"What comfort food should we make together this week?", models.VibeWholesome},
		{"What's your favorite inside joke of ours and how did it start?", models.VibeLore},
		{"What moment made you realize we were going to work?", models.VibeLore},
		{"What's a childhood memory you haven't told me yet?", models.VibeLore},
		{"If we had to go on a spontaneous road trip right now, where would we go?", models.VibeChaos},
		{"What's the most unhinged purchase you'd make if you won the lottery?", models.VibeChaos},
		{"If we were in a heist movie, what would our roles be?", models.VibeChaos},
		{"What outfit of mine drives you crazy (in a good way)?", models.VibeSpicy},
		{"Describe a perfect date night — no budget, no limits.", models.VibeSpicy},
		{"What's one goal you're working toward that I could support better?", models.VibeGrind},
		{"Where do you want to be career-wise in 5 years?", models.VibeGrind},
		{"What's somewhere you've always wanted to travel together?", models.VibePlot},
		{"What's a tradition you'd like us to start?", models.VibePlot},
		{"If we could live anywhere in the world, where would it be?", models.VibePlot},
		{"What's a belief you've completely changed your mind about over the years?", models.VibeIntellectual},
		{"If you could have dinner with anyone in history, who and why?", models.VibeIntellectual},
		{"What made you laugh out loud this week?", models.VibeWildcard},
		{"What's something random you thought about today?", models.VibeWildcard},
		{"If you could learn any skill instantly, what would it be?", models.VibeWildcard},
		{"What's the best meal you've had recently?", models.VibeWildcard},
		{"What show or movie are you obsessed with right now?", models.VibeWildcard},
		{"What's something you're looking forward to this month?", models.VibeWildcard},
		{"Describe your ideal morning routine.", models.VibeWholesome},
		{"What's a hidden talent of yours I might not know about?", models.VibeLore},
		{"What would your superhero name and power be?", models.VibeChaos},
		{"What's a fear you'd like to overcome together?", models.VibePlot},
		{"What does \"home\" mean to you?", models.VibeIntellectual},
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	created := 0
	for i, seed := range seeds {
		activeDate := today.AddDate(0, 0, i)

		var existing models.Prompt
		err := db.Where("active_date = ?", activeDate).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		prompt := models.Prompt{
			Text:       seed.text,
			Category:   seed.category,
			ActiveDate: activeDate,
		}
		if err := db.Create(&prompt).Error; err != nil {
			return err
		}
		created++
	}

	log.Printf("Seeded %d new prompts", created)
	return nil
}

type sparkSeed struct {
	text     string
	category string
	optionB  string
	vibe     string
	subtitle string
}

func seedSparks(db *gorm.DB) error {
	seeds := []sparkSeed{
		{"Cook a new recipe together that neither of you has tried before", models.SparkCategoryDate, "", models.VibeWholesome, "Pick something slightly ambitious!"},
		{"Build a blanket fort and watch your favorite childhood movie", models.SparkCategoryDate, "", models.VibeWholesome, ""},
		{"Have a picnic — inside or outside, your choice", models.SparkCategoryDate, "", models.VibeWholesome, ""},
		{"Take a sunset walk with no destination in mind", models.SparkCategoryDate, "", models.VibeWholesome, ""},
		{"Write love letters to each other and read them out loud", models.SparkCategoryDate, "", models.VibeWholesome, ""},
		{"Stargaze from your backyard, balcony, or even a parking lot", models.SparkCategoryDate, "", models.VibeWholesome, ""},
		{"Go thrift shopping and pick out the most ridiculous outfit for each other — then wear them to dinner", models.SparkCategoryDate, "", models.VibeChaos, ""},
		{"Have a \"yes day\" where you say yes to whatever the other person suggests", models.SparkCategoryDate, "", models.VibeChaos, ""},
		{"Drive somewhere you've never been with no GPS — just vibes", models.SparkCategoryDate, "", models.VibeChaos, ""},
		{"Do karaoke at home with only songs you don't know the words to", models.SparkCategoryDate, "", models.VibeChaos, ""},
		{"What's a dream you've given up on — and do you ever think about picking it back up?", models.SparkCategoryConvo, "", models.VibeIntellectual, ""},
		{"If our relationship had a theme song, what would it be and why?", models.SparkCategoryConvo, "", models.VibeLore, ""},
		{"What's something you admire about me that you've never said out loud?", models.SparkCategoryConvo, "", models.VibeWholesome, ""},
		{"Where do you see us in ten years?", models.SparkCategoryConvo, "", models.VibePlot, ""},
		{"Would you rather relive our first date exactly as it was", models.SparkCategoryWYR, "or redo it with everything you know now?", models.VibeLore, ""},
		{"Would you rather win the lottery together", models.SparkCategoryWYR, "or both get your absolute dream jobs?", models.VibeGrind, ""},
		{"Would you rather never argue again", models.SparkCategoryWYR, "or have every argument end in laughter?", models.VibeWildcard, ""},
		{"Thumb war tournament: best of seven, loser does the dishes", models.SparkCategoryGame, "", models.VibeChaos, ""},
		{"Twenty questions, but only about each other", models.SparkCategoryGame, "", models.VibeLore, ""},
		{"Draw each other in 60 seconds, then trade portraits", models.SparkCategoryGame, "", models.VibeWildcard, ""},
	}

	created := 0
	for _, seed := range seeds {
		var existing models.Spark
		err := db.Where("text = ? AND category = ?", seed.text, seed.category).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		spark := models.Spark{
			Text:     seed.text,
			Category: seed.category,
			OptionB:  seed.optionB,
			Vibe:     seed.vibe,
			Subtitle: seed.subtitle,
		}
		if err := db.Create(&spark).Error; err != nil {
			return err
		}
		created++
	}

	log.Printf("Seeded %d new sparks", created)
	return nil
}
