package sources

import "reddot-watch/newswire/internal/models"

// Defaults is the source list used when no CSV file is configured.
func Defaults() []models.FeedSource {
	return []models.FeedSource{
		{Name: "OpenAI", URL: "https://openai.com/news/rss.xml", Site: "https://openai.com"},
		{Name: "Google AI", URL: "https://blog.google/technology/ai/rss/", Site: "https://blog.google/technology/ai/"},
		{Name: "Hugging Face", URL: "https://huggingface.co/blog/feed.xml", Site: "https://huggingface.co/blog"},
		{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/topic/artificial-intelligence/feed", Site: "https://www.technologyreview.com"},
		{Name: "The Verge AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", Site: "https://www.theverge.com"},
		{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", Site: "https://techcrunch.com"},
	}
}
