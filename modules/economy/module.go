package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/novabot/nova/internal/apperr"
	"github.com/novabot/nova/internal/bot"
	"github.com/novabot/nova/internal/embeds"
	"github.com/novabot/nova/internal/reply"
	"github.com/novabot/nova/internal/store"
)

type record struct {
	GuildID     string `json:"guildId"`
	UserID      string `json:"userId"`
	Balance     int    `json:"balance"`
	LastDaily   int64  `json:"lastDaily"`
	DailyStreak int    `json:"dailyStreak"`
	LastWork    int64  `json:"lastWork"`
}

type Module struct {
	store   *store.Store
	log     zerolog.Logger
	guildID string

	now func() time.Time
}

func New(st *store.Store, log zerolog.Logger, guildID string) *Module {
	return &Module{store: st, log: log, guildID: guildID, now: time.Now}
}

func (m *Module) Name() string { return "economy" }

func (m *Module) Register(s *discordgo.Session) error {
	s.AddHandler(m.onReady)
	s.AddHandler(m.onInteractionCreate)
	return nil
}

func (m *Module) Start(ctx context.Context, s *discordgo.Session) error { return nil }

func (m *Module) onReady(s *discordgo.Session, _ *discordgo.Ready) {
	bot.RegisterCommands(s, m.log, m.guildID, []*discordgo.ApplicationCommand{
		{
			Name:        "balance",
			Description: "💰 Check your or someone's balance",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to check (default: you)", Required: false},
			},
		},
		{Name: "daily", Description: "🎁 Claim your daily reward"},
		{Name: "work", Description: "💼 Work to earn coins"},
		{
			Name:        "gamble",
			Description: "🎲 Gamble your coins (risky!)",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Amount to gamble", Required: true},
			},
		},
		{
			Name:        "give",
			Description: "💝 Give coins to another user",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Who to give coins to", Required: true},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "How many coins", Required: true},
			},
		},
		{Name: "rich", Description: "🏆 View the server's richest users"},
		{Name: "shop", Description: "🛒 View the Nova shop"},
	})
}

func (m *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	switch i.ApplicationCommandData().Name {
	case "balance":
		m.handleBalance(s, i)
	case "daily":
		m.handleDaily(s, i)
	case "work":
		m.handleWork(s, i)
	case "gamble":
		m.handleGamble(s, i)
	case "give":
		m.handleGive(s, i)
	case "rich":
		m.handleRich(s, i)
	case "shop":
		m.handleShop(s, i)
	}
}

func (m *Module) load(ctx context.Context, guildID, userID string) (*record, error) {
	doc, err := m.store.FindOne(ctx, store.ColEconomy, store.Doc{"guildId": guildID, "userId": userID})
	if errors.Is(err, store.ErrNoDocument) {
		return &record{GuildID: guildID, UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	var rec record
	if err := store.Decode(doc, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// addBalance increments atomically and returns the post-update balance.
func (m *Module) addBalance(ctx context.Context, guildID, userID string, amount int) (int, error) {
	doc, err := m.store.FindOneAndUpdate(ctx, store.ColEconomy,
		store.Doc{"guildId": guildID, "userId": userID},
		store.Doc{"$inc": store.Doc{"balance": amount}},
		true,
	)
	if err != nil {
		return 0, err
	}
	var rec record
	if err := store.Decode(doc, &rec); err != nil {
		return 0, err
	}
	return rec.Balance, nil
}

func (m *Module) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	targetID := reply.UserID(i)
	targetName := ""
	if opt, ok := bot.CommandOptions(i)["user"]; ok {
		u := opt.UserValue(s)
		targetID, targetName = u.ID, u.Username
	}

	rec, err := m.load(context.Background(), i.GuildID, targetID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the balance"))
		return
	}

	description := fmt.Sprintf("You have **%s** Nova Coins! 🪙", humanize.Comma(int64(rec.Balance)))
	if targetName != "" && targetID != reply.UserID(i) {
		description = fmt.Sprintf("%s has **%s** Nova Coins! 🪙", targetName, humanize.Comma(int64(rec.Balance)))
	}
	e := embeds.Economy("Balance", description)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Wealth Tier", Value: wealthTier(rec.Balance), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleDaily(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	userID := reply.UserID(i)
	now := m.now()

	rec, err := m.load(ctx, i.GuildID, userID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load your account"))
		return
	}
	if !canClaimDaily(rec.LastDaily, now) {
		left := time.Unix(rec.LastDaily, 0).Add(dailyCooldown).Sub(now)
		reply.Err(s, i, m.log, apperr.Statef("You already claimed your daily reward!\nNext reward in: %dh %dm",
			int(left.Hours()), int(left.Minutes())%60))
		return
	}

	bonus := randBonus()
	streak := nextStreak(rec.LastDaily, rec.DailyStreak, now)
	sBonus := streakBonus(streak)
	total := dailyBase + bonus + sBonus

	newBalance, err := m.addBalance(ctx, i.GuildID, userID, total)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not pay the reward"))
		return
	}
	_, err = m.store.UpdateOne(ctx, store.ColEconomy,
		store.Doc{"guildId": i.GuildID, "userId": userID},
		store.Doc{"$set": store.Doc{"lastDaily": now.Unix(), "dailyStreak": streak}},
		true,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not record the claim"))
		return
	}

	e := embeds.Economy("🎁 Daily Reward Claimed!",
		fmt.Sprintf("You received **%s** Nova Coins!", humanize.Comma(int64(total))))
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Base Reward", Value: fmt.Sprintf("%d coins", dailyBase), Inline: true},
	}
	if bonus > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Bonus", Value: fmt.Sprintf("%d coins", bonus), Inline: true})
	}
	if sBonus > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Streak Bonus", Value: fmt.Sprintf("%d coins", sBonus), Inline: true})
	}
	e.Fields = append(e.Fields,
		&discordgo.MessageEmbedField{Name: "Daily Streak", Value: fmt.Sprintf("%d %s", streak, pluralDay(streak)), Inline: true},
		&discordgo.MessageEmbedField{Name: "New Balance", Value: fmt.Sprintf("%s coins", humanize.Comma(int64(newBalance))), Inline: true},
	)
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleWork(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	userID := reply.UserID(i)
	now := m.now()

	rec, err := m.load(ctx, i.GuildID, userID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load your account"))
		return
	}
	if rec.LastWork > 0 {
		if left := workCooldown - now.Sub(time.Unix(rec.LastWork, 0)); left > 0 {
			reply.Err(s, i, m.log, apperr.Statef("You're too tired to work right now!\nTry again in %d minutes.",
				int(left.Minutes())+1))
			return
		}
	}

	description, earnings := pickJob()
	newBalance, err := m.addBalance(ctx, i.GuildID, userID, earnings)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not pay your wages"))
		return
	}
	_, err = m.store.UpdateOne(ctx, store.ColEconomy,
		store.Doc{"guildId": i.GuildID, "userId": userID},
		store.Doc{"$set": store.Doc{"lastWork": now.Unix()}},
		true,
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not record the shift"))
		return
	}

	e := embeds.Economy("💼 Work Complete!", description)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Earned", Value: fmt.Sprintf("%d coins", earnings), Inline: true},
		{Name: "New Balance", Value: fmt.Sprintf("%s coins", humanize.Comma(int64(newBalance))), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleGamble(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	userID := reply.UserID(i)
	amount := int(bot.CommandOptions(i)["amount"].IntValue())

	if amount < gambleMin {
		reply.Err(s, i, m.log, apperr.Validationf("Minimum bet is %d coins!", gambleMin))
		return
	}
	if amount > gambleMax {
		reply.Err(s, i, m.log, apperr.Validationf("Maximum bet is %s coins!", humanize.Comma(gambleMax)))
		return
	}

	rec, err := m.load(ctx, i.GuildID, userID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load your account"))
		return
	}
	if amount > rec.Balance {
		reply.Err(s, i, m.log, apperr.Validationf("You don't have enough coins! You have %s coins.",
			humanize.Comma(int64(rec.Balance))))
		return
	}

	won, delta := gambleOutcome(amount)
	newBalance, err := m.addBalance(ctx, i.GuildID, userID, delta)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not settle the bet"))
		return
	}

	if won {
		e := embeds.New("🎉 You Won!",
			fmt.Sprintf("Lucky you! You won **%s** coins!", humanize.Comma(int64(delta))), embeds.ColorSuccess)
		e.Fields = []*discordgo.MessageEmbedField{
			{Name: "Bet", Value: fmt.Sprintf("%s coins", humanize.Comma(int64(amount))), Inline: true},
			{Name: "Won", Value: fmt.Sprintf("%s coins", humanize.Comma(int64(delta))), Inline: true},
			{Name: "New Balance", Value: fmt.Sprintf("%s coins", humanize.Comma(int64(newBalance))), Inline: true},
		}
		_ = reply.Embed(s, i, e)
		return
	}
	e := embeds.New("💸 You Lost!",
		fmt.Sprintf("Better luck next time! You lost **%s** coins.", humanize.Comma(int64(amount))), embeds.ColorError)
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Lost", Value: fmt.Sprintf("%s coins", humanize.Comma(int64(amount))), Inline: true},
		{Name: "New Balance", Value: fmt.Sprintf("%s coins", humanize.Comma(int64(newBalance))), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleGive(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	senderID := reply.UserID(i)
	opts := bot.CommandOptions(i)
	target := opts["user"].UserValue(s)
	amount := int(opts["amount"].IntValue())

	if amount <= 0 {
		reply.Err(s, i, m.log, apperr.Validation("Amount must be positive!"))
		return
	}
	if target.ID == senderID {
		reply.Err(s, i, m.log, apperr.Validation("You can't give coins to yourself!"))
		return
	}
	if target.Bot {
		reply.Err(s, i, m.log, apperr.Validation("Bots don't need coins!"))
		return
	}

	rec, err := m.load(ctx, i.GuildID, senderID)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load your account"))
		return
	}
	if amount > rec.Balance {
		reply.Err(s, i, m.log, apperr.Validationf("You don't have enough coins! You have %s coins.",
			humanize.Comma(int64(rec.Balance))))
		return
	}

	senderBalance, err := m.addBalance(ctx, i.GuildID, senderID, -amount)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not transfer the coins"))
		return
	}
	receiverBalance, err := m.addBalance(ctx, i.GuildID, target.ID, amount)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not transfer the coins"))
		return
	}

	e := embeds.Economy("💝 Coins Given!",
		fmt.Sprintf("You gave **%s** coins to %s!", humanize.Comma(int64(amount)), target.Mention()))
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Your Balance", Value: fmt.Sprintf("%s coins", humanize.Comma(int64(senderBalance))), Inline: true},
		{Name: fmt.Sprintf("%s's Balance", target.Username), Value: fmt.Sprintf("%s coins", humanize.Comma(int64(receiverBalance))), Inline: true},
	}
	_ = reply.Embed(s, i, e)
}

func (m *Module) handleRich(s *discordgo.Session, i *discordgo.InteractionCreate) {
	docs, err := m.store.FindMany(context.Background(), store.ColEconomy,
		store.Doc{"guildId": i.GuildID},
		&store.FindOptions{SortField: "balance", SortDesc: true, Limit: 10},
	)
	if err != nil {
		reply.Err(s, i, m.log, apperr.External(err, "could not load the leaderboard"))
		return
	}
	if len(docs) == 0 {
		reply.Err(s, i, m.log, apperr.NotFound("Nobody has any coins yet. Try `/daily`!"))
		return
	}

	medals := []string{"🥇", "🥈", "🥉"}
	lines := make([]string, 0, len(docs))
	for n, doc := range docs {
		var rec record
		if err := store.Decode(doc, &rec); err != nil {
			continue
		}
		marker := fmt.Sprintf("`#%d`", n+1)
		if n < len(medals) {
			marker = medals[n]
		}
		lines = append(lines, fmt.Sprintf("%s <@%s> — %s coins", marker, rec.UserID, humanize.Comma(int64(rec.Balance))))
	}
	_ = reply.Embed(s, i, embeds.Page("🏆 Richest Users", lines, 0, embeds.ColorEconomy))
}

var shopItems = []struct {
	name, description string
	price             int
}{
	{"🌟 VIP Role", "Get a special VIP role!", 50_000},
	{"🎨 Custom Color", "Choose your role color!", 25_000},
	{"💝 Gift Box", "Random rewards inside!", 10_000},
	{"🏆 Trophy", "Show off your wealth!", 15_000},
	{"🌸 Nova Badge", "Cute Nova badge for your profile!", 5_000},
}

func (m *Module) handleShop(s *discordgo.Session, i *discordgo.InteractionCreate) {
	text := ""
	for _, item := range shopItems {
		text += fmt.Sprintf("**%s** - %s coins\n%s\n\n", item.name, humanize.Comma(int64(item.price)), item.description)
	}
	e := embeds.Economy("🛒 Nova Shop", "Welcome to the Nova Shop!")
	e.Fields = []*discordgo.MessageEmbedField{
		{Name: "Available Items", Value: text, Inline: false},
		{Name: "Note", Value: "Shop purchases are coming soon!", Inline: false},
	}
	_ = reply.Embed(s, i, e)
}

func pluralDay(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}
