// Package catalog serves the static demo content lists. Items are fixed at
// compile time; a real deployment would back this with a CMS.
package catalog

import "clickearn/internal/money"

// ContentItem is one clickable article card
type ContentItem struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Earnings    money.Cents `json:"earnings"`
}

// VideoItem is one watchable video card
type VideoItem struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Thumbnail   string      `json:"thumbnail"`
	Duration    int         `json:"duration_seconds"`
	Earnings    money.Cents `json:"earnings"`
}

// Catalog hands out the demo content with per-item earnings stamped from
// the configured rewards.
type Catalog struct {
	clickReward money.Cents
	videoReward money.Cents
}

func New(clickReward, videoReward money.Cents) *Catalog {
	return &Catalog{clickReward: clickReward, videoReward: videoReward}
}

// Content returns the clickable article cards
func (c *Catalog) Content() []ContentItem {
	return []ContentItem{
		{
			ID:          "content_1",
			Title:       "Artigo sobre Tecnologia",
			Description: "Descubra as últimas tendências em tecnologia",
			Image:       "https://images.unsplash.com/photo-1518709268805-4e9042af2176?w=300&h=200&fit=crop",
			Earnings:    c.clickReward,
		},
		{
			ID:          "content_2",
			Title:       "Dicas de Investimento",
			Description: "Como investir seu dinheiro de forma inteligente",
			Image:       "https://images.unsplash.com/photo-1559526324-593bc073d938?w=300&h=200&fit=crop",
			Earnings:    c.clickReward,
		},
		{
			ID:          "content_3",
			Title:       "Saúde e Bem-estar",
			Description: "Mantenha-se saudável com essas dicas",
			Image:       "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=300&h=200&fit=crop",
			Earnings:    c.clickReward,
		},
		{
			ID:          "content_4",
			Title:       "Receitas Deliciosas",
			Description: "Aprenda a fazer pratos incríveis",
			Image:       "https://images.unsplash.com/photo-1567620905732-2d1ec7ab7445?w=300&h=200&fit=crop",
			Earnings:    c.clickReward,
		},
	}
}

// Videos returns the watchable video cards
func (c *Catalog) Videos() []VideoItem {
	return []VideoItem{
		{
			ID:          "video_1",
			Title:       "Tutorial de Finanças Pessoais",
			Description: "Organize seu orçamento em 5 passos",
			Thumbnail:   "https://images.unsplash.com/photo-1554224155-6726b3ff858f?w=300&h=200&fit=crop",
			Duration:    95,
			Earnings:    c.videoReward,
		},
		{
			ID:          "video_2",
			Title:       "Exercícios em Casa",
			Description: "Treino completo sem equipamentos",
			Thumbnail:   "https://images.unsplash.com/photo-1571019614242-c5c5dee9f50b?w=300&h=200&fit=crop",
			Duration:    120,
			Earnings:    c.videoReward,
		},
		{
			ID:          "video_3",
			Title:       "Culinária Rápida",
			Description: "Jantar pronto em 15 minutos",
			Thumbnail:   "https://images.unsplash.com/photo-1466637574441-749b8f19452f?w=300&h=200&fit=crop",
			Duration:    80,
			Earnings:    c.videoReward,
		},
	}
}
