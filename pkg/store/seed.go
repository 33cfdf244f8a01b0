package store

import (
	"fmt"
	"time"

	"nemsutalks/pkg/domain"
)

// Demo contents shown by a fresh portal. Relative timestamps are computed
// from now.

func SeedSentiments() []domain.Sentiment {
	p := func(v domain.Polarity) *domain.Polarity { return &v }
	return []domain.Sentiment{
		{ID: "STU-001", StudID: "2024-0001", Content: "The wifi connection in Building C is unreliable and disconnects frequently during online classes.", Category: domain.CategoryFacilities, Status: domain.StatusOnProcess, Date: "2025-01-15", SentimentType: p(domain.PolarityNegative)},
		{ID: "STU-002", StudID: "2024-0045", Content: "Thank you to the Student Affairs Office for organizing the career fair! It was very informative.", Category: domain.CategoryAdministration, Status: domain.StatusResolved, Date: "2025-01-14", SentimentType: p(domain.PolarityPositive)},
		{ID: "STU-003", StudID: "2024-0123", Content: "Requesting for more electric fans in Room 301. The room gets really hot during afternoon classes.", Category: domain.CategoryFacilities, Status: domain.StatusOnProcess, Date: "2025-01-14", SentimentType: p(domain.PolarityNeutral)},
		{ID: "STU-004", StudID: "2024-0089", Content: "The canteen prices have increased but the portion sizes remain the same.", Category: domain.CategoryAdministration, Status: domain.StatusOnProcess, Date: "2025-01-13", SentimentType: p(domain.PolarityNeutral)},
		{ID: "STU-005", StudID: "2024-0234", Content: "Prof. Garcia's teaching methods are very effective. I finally understood calculus!", Category: domain.CategoryInstruction, Status: domain.StatusResolved, Date: "2025-01-12", SentimentType: p(domain.PolarityPositive)},
		{ID: "STU-006", StudID: "2024-0156", Content: "The drainage system near the Main Gate needs attention. It floods every time it rains.", Category: domain.CategoryFacilities, Status: domain.StatusOnProcess, Date: "2025-01-11", SentimentType: p(domain.PolarityNegative)},
		{ID: "STU-007", StudID: "2024-0078", Content: "The library should extend its operating hours during finals week.", Category: domain.CategoryAdministration, Status: domain.StatusResolved, Date: "2025-01-10", SentimentType: p(domain.PolarityNeutral)},
		{ID: "STU-008", StudID: "2024-0199", Content: "Great improvement in the science lab equipment this semester!", Category: domain.CategoryFacilities, Status: domain.StatusResolved, Date: "2025-01-09", SentimentType: p(domain.PolarityPositive)},
	}
}

// SeedFeed returns the demo feed. Seed like counts are represented by
// placeholder likers so the count stays equal to the liker set.
func SeedFeed(now time.Time) []domain.UserSentiment {
	ms := func(ago time.Duration) int64 { return now.Add(-ago).UnixMilli() }
	comment := func(id, author, avatar, content, stamp string, ago time.Duration) domain.Comment {
		return domain.Comment{ID: id, Author: author, Avatar: avatar, Content: content, Timestamp: stamp, CreatedAt: ms(ago)}
	}
	post := func(id int64, avatar, content, stamp string, pol domain.Polarity, cat domain.Category, likes int, ago time.Duration, comments ...domain.Comment) domain.UserSentiment {
		if comments == nil {
			comments = []domain.Comment{}
		}
		return domain.UserSentiment{
			ID:        id,
			Avatar:    avatar,
			Author:    AnonymousAuthor,
			Content:   content,
			Timestamp: stamp,
			Sentiment: pol,
			Category:  cat,
			Likes:     likes,
			LikedBy:   placeholderLikers(likes),
			Comments:  comments,
			CreatedAt: ms(ago),
		}
	}
	return []domain.UserSentiment{
		post(1, "AS", "The new library facilities are amazing! Finally, we have a quiet place to study during exam weeks. Great job, NEMSU!",
			"2 hours ago", domain.PolarityPositive, domain.CategoryFacilities, 24, 2*time.Hour,
			comment("c1", "Maria Santos", "MS", "Totally agree! The new study pods are perfect.", "1 hour ago", time.Hour),
			comment("c2", "John Cruz", "JC", "The aircon is also working well now!", "45 mins ago", 45*time.Minute)),
		post(2, "MS", "Wifi connection in Building C is still unreliable. It disconnects frequently during online classes which is really frustrating.",
			"4 hours ago", domain.PolarityNegative, domain.CategoryFacilities, 18, 4*time.Hour,
			comment("c3", "Tech Support", "TS", "We are aware of this issue and working on upgrading the routers.", "3 hours ago", 3*time.Hour)),
		post(3, "JD", "The canteen prices have increased but the portion sizes remain the same. Hope the admin can look into this matter.",
			"6 hours ago", domain.PolarityNeutral, domain.CategoryAdministration, 31, 6*time.Hour),
		post(4, "RG", "Thank you to the Student Affairs Office for organizing the career fair! It was very informative and helpful for us graduating students.",
			"8 hours ago", domain.PolarityPositive, domain.CategoryAdministration, 45, 8*time.Hour,
			comment("c4", "SAO Admin", "SA", "Thank you for your feedback! We will have more events soon.", "7 hours ago", 7*time.Hour)),
		post(5, "KC", "The drainage system near the Main Gate needs attention. It floods every time it rains heavily, making it difficult to pass through.",
			"12 hours ago", domain.PolarityNegative, domain.CategoryFacilities, 52, 12*time.Hour),
		post(6, "LM", "Requesting for more electric fans in Room 301. The room gets really hot during afternoon classes especially this summer.",
			"1 day ago", domain.PolarityNeutral, domain.CategoryFacilities, 28, 24*time.Hour),
	}
}

func placeholderLikers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("seed-user-%d", i+1)
	}
	return out
}

func SeedNotifications(now time.Time) []domain.Notification {
	return []domain.Notification{
		{ID: "notif-1", Title: "New Sentiment Submitted", Message: "A student submitted feedback about wifi connectivity issues in Building C.", Type: domain.NotificationNewSentiment, CreatedAt: now.Add(-5 * time.Minute), Link: adminLink},
		{ID: "notif-2", Title: "New Sentiment Submitted", Message: "A student submitted feedback about canteen price increases.", Type: domain.NotificationNewSentiment, CreatedAt: now.Add(-30 * time.Minute), Link: adminLink},
		{ID: "notif-3", Title: "Status Updated", Message: "Sentiment STU-007 has been marked as Resolved.", Type: domain.NotificationStatusUpdate, CreatedAt: now.Add(-time.Hour), Link: adminLink},
		{ID: "notif-4", Title: "System Alert", Message: "Weekly sentiment report is ready for review.", Type: domain.NotificationSystem, IsRead: true, CreatedAt: now.Add(-3 * time.Hour)},
		{ID: "notif-5", Title: "New Sentiment Submitted", Message: "A student submitted positive feedback about Prof. Garcia's teaching methods.", Type: domain.NotificationNewSentiment, IsRead: true, CreatedAt: now.Add(-24 * time.Hour), Link: adminLink},
	}
}

func SeedAnnouncements() []domain.Announcement {
	return []domain.Announcement{
		{ID: "1", Title: "Enrollment Period for 2nd Semester", Description: "Online enrollment for the 2nd Semester AY 2024-2025 will begin on January 15, 2025. Please prepare your requirements.", Category: "Academic", Date: "2025-01-10", Status: domain.AnnouncementPublished, IsNew: true},
		{ID: "2", Title: "University Foundation Day", Description: "Join us in celebrating the 43rd Foundation Anniversary of NEMSU on February 14, 2025. Various activities and programs are scheduled.", Category: "Events", Date: "2025-01-08", Status: domain.AnnouncementPublished, IsNew: true},
		{ID: "3", Title: "Library Hours Extended", Description: "The university library will extend its operating hours during the examination period from 7:00 AM to 9:00 PM.", Category: "Facilities", Date: "2025-01-05", Status: domain.AnnouncementDraft},
		{ID: "4", Title: "Scholarship Applications Open", Description: "Applications for the NEMSU Academic Excellence Scholarship are now open. Submit your application at the Student Affairs Office.", Category: "Scholarship", Date: "2025-01-03", Status: domain.AnnouncementPublished},
	}
}
