package seed

import (
	"kidney-story/internal/domain"
	"kidney-story/internal/service"

	"github.com/shopspring/decimal"
)

var tagNames = []string{
	"dialysis", "transplant", "diet", "medication", "exercise",
	"mental health", "support", "caregiving", "treatment",
	"research", "lifestyle", "nutrition", "wellness", "community",
}

type category struct {
	Name        string
	Description string
}

type product struct {
	Title       string
	Description string
	Price       string
	Tags        []string
}

type shopCategory struct {
	category
	Products []product
}

var shopCategories = []shopCategory{
	{category{"Dietary Supplements", "Supplements designed for kidney patients."}, []product{
		{"Renal Multivitamin", "Daily vitamin formulated without excess potassium or phosphorus.", "649.00", []string{"nutrition", "medication"}},
	}},
	{category{"Medical Devices", "Devices to help monitor health at home."}, []product{
		{"Digital Blood Pressure Monitor", "Upper-arm monitor with memory for two users.", "2499.00", []string{"treatment"}},
		{"Home Weighing Scale", "Track fluid gain between dialysis sessions.", "1199.00", []string{"dialysis"}},
	}},
	{category{"Books & Education", "Educational resources about kidney health."}, []product{
		{"Living Well on Dialysis", "A practical guide for patients and families.", "399.00", []string{"dialysis", "lifestyle"}},
	}},
	{category{"Comfort Items", "Items to improve comfort during dialysis and recovery."}, []product{
		{"Fistula Arm Cushion", "Soft support cushion for long dialysis sessions.", "899.00", []string{"dialysis", "wellness"}},
	}},
	{category{"Kidney-Friendly Foods", "Foods specially formulated for kidney patients."}, []product{
		{"Low-Sodium Spice Blend", "Salt-free seasoning for renal diets.", "249.00", []string{"diet", "nutrition"}},
	}},
	{category{"Medication Organizers", "Tools to help manage medications."}, []product{
		{"Weekly Pill Organizer", "Seven-day organizer with morning and evening compartments.", "299.00", []string{"medication"}},
	}},
	{category{"Fitness & Wellness", "Products to support physical activity and wellness."}, []product{
		{"Resistance Band Set", "Gentle strength training for recovery.", "799.00", []string{"exercise", "wellness"}},
	}},
}

var forumCategories = []category{
	{"General Discussion", "General topics related to kidney health and community."},
	{"Dialysis", "Discussions about dialysis treatments, experiences, and tips."},
	{"Diet & Nutrition", "Share kidney-friendly recipes and dietary advice."},
	{"Mental Health", "Support for mental health challenges related to kidney disease."},
	{"Caregivers Corner", "A space for caregivers to share experiences and advice."},
	{"Treatment Options", "Discuss various treatment options and experiences."},
	{"Transplant", "Information and experiences about kidney transplants."},
}

func coord(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

var centers = []service.CenterInput{
	{
		Name:        "Lifeline Hospital Dialysis Center",
		Address:     "12 Linking Road, Bandra West",
		City:        "Mumbai",
		State:       "Maharashtra",
		Contact:     "+91 22 4000 1000",
		Email:       "dialysis@lifeline.example.org",
		Type:        domain.CenterTypeHospital,
		Description: "Hemodialysis unit with twenty stations and night shifts.",
		Latitude:    coord("19.0596"),
		Longitude:   coord("72.8295"),
	},
	{
		Name:        "Renal Care Standalone Dialysis Center",
		Address:     "44 Residency Road",
		City:        "Bangalore",
		State:       "Karnataka",
		Contact:     "+91 80 4100 2000",
		Type:        domain.CenterTypeStandalone,
		Description: "Outpatient dialysis with weekend sessions.",
		Latitude:    coord("12.9716"),
		Longitude:   coord("77.5946"),
	},
	{
		Name:        "Capital Kidney Hospital Dialysis Center",
		Address:     "8 Ring Road, Lajpat Nagar",
		City:        "Delhi",
		State:       "Delhi",
		Contact:     "+91 11 4200 3000",
		Type:        domain.CenterTypeHospital,
		Description: "Hospital unit offering hemodialysis and peritoneal dialysis training.",
	},
}

const welcomeContent = `Our Kidney Story is a community for people living with kidney disease and the people who care for them.

Share your story, ask questions in the forums, find a dialysis center near you and read articles from our team.`
