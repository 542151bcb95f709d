package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"intaker/internal/model"
	"intaker/internal/repository"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database("intakerdb")
	scriptRepo := repository.NewScriptRepo(db)

	script := &model.IntakeScript{
		ScriptID:    "asam-intake-v1",
		Version:     1,
		ScriptName:  "ASAM Intake Assessment",
		Description: "Structured substance-use intake covering the six ASAM dimensions.",
		ScriptData: map[string]any{
			"sections": []map[string]any{
				{
					"id":    "D1",
					"title": "Intoxication and Withdrawal",
					"questions": []string{
						"When did you last use, and how much?",
						"Have you experienced shaking, sweating, or nausea when stopping?",
						"Have you ever had a seizure or hallucinations during withdrawal?",
					},
				},
				{
					"id":    "D2",
					"title": "Biomedical Conditions",
					"questions": []string{
						"Do you have any ongoing medical conditions?",
						"Are you currently pregnant?",
					},
				},
				{
					"id":    "D3",
					"title": "Emotional and Behavioral Health",
					"questions": []string{
						"Over the last two weeks, how often have you felt down or hopeless?",
						"Have you had thoughts of hurting yourself?",
					},
				},
				{
					"id":    "D4",
					"title": "Readiness to Change",
					"questions": []string{
						"On a scale of 1 to 10, how important is making a change right now?",
						"How confident are you that you could change if you decided to?",
					},
				},
				{
					"id":    "D5",
					"title": "Relapse and Continued Use Potential",
					"questions": []string{
						"Do you have a safe place to go if cravings get strong?",
						"Is there someone you can call for support?",
					},
				},
				{
					"id":    "D6",
					"title": "Recovery Environment",
					"questions": []string{
						"Is there anything that would make it hard to attend treatment?",
						"What supports do you have in your life right now?",
					},
				},
			},
		},
		ScoringWeights: map[string]float64{
			"medical":     0.30,
			"emotional":   0.30,
			"readiness":   0.20,
			"relapse":     0.15,
			"environment": 0.15,
		},
		EscalationProtocols: map[string]string{
			"high_risk": "Immediately stop the interview flow. Tell the patient: \"Your safety is the most important thing right now.\" Provide the 988 Suicide & Crisis Lifeline. Notify the supervising clinician and do not resume structured questions until cleared.",
		},
		Active: true,
	}

	if err := scriptRepo.Upsert(ctx, script); err != nil {
		log.Fatalf("Failed to upsert script: %v", err)
	}
	if err := scriptRepo.SetActive(ctx, script.ScriptID); err != nil {
		log.Fatalf("Failed to activate script: %v", err)
	}

	fmt.Printf("Successfully seeded intake script '%s' (version %d)\n", script.ScriptID, script.Version)
}
