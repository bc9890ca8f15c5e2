// Package fun bundles the lightweight entertainment commands: 8-ball,
// dice, coin flips, choices, jokes, compliments and ratings.
package fun

var eightBallAnswers = []string{
	"It is certain! ✨",
	"Without a doubt! 💫",
	"Yes definitely! 🌟",
	"You may rely on it! 💖",
	"As I see it, yes! 👀",
	"Most likely! 🌸",
	"Outlook good! 🌺",
	"Yes! 💕",
	"Signs point to yes! 👍",
	"Reply hazy, try again... 🌫️",
	"Ask again later! ⏰",
	"Better not tell you now... 🤫",
	"Cannot predict now! 🔮",
	"Concentrate and ask again! 🧘",
	"Don't count on it! 😅",
	"My reply is no! ❌",
	"My sources say no! 📚",
	"Outlook not so good... 😰",
	"Very doubtful! 🤔",
}

type jokeEntry struct {
	setup, punchline string
}

var jokes = []jokeEntry{
	{"Why don't scientists trust atoms?", "Because they make up everything! 😄"},
	{"Why did the scarecrow win an award?", "He was outstanding in his field! 🌾"},
	{"Why don't eggs tell jokes?", "They'd crack each other up! 🥚"},
	{"What do you call a fake noodle?", "An impasta! 🍝"},
	{"Why did the math book look so sad?", "Because it had too many problems! 📚"},
	{"What do you call a bear with no teeth?", "A gummy bear! 🐻"},
	{"Why don't skeletons fight each other?", "They don't have the guts! 💀"},
	{"What do you call a dinosaur that crashes his car?", "Tyrannosaurus Wrecks! 🦕"},
	{"Why can't a bicycle stand up by itself?", "It's two tired! 🚲"},
	{"What do you call a fish wearing a crown?", "A king fish! 👑🐟"},
}

var compliments = []string{
	"You're absolutely amazing! ✨",
	"Your smile could light up the whole server! 😊",
	"You have such a wonderful personality! 💖",
	"You're incredibly thoughtful and kind! 🌸",
	"Your creativity is inspiring! 🎨",
	"You make everyone around you happier! 🌟",
	"You're stronger than you know! 💪",
	"Your positive energy is contagious! ⚡",
	"You're a true gem! 💎",
	"You have an amazing sense of humor! 😄",
	"You're so talented! 🌺",
	"Your kindness makes the world better! 🌍",
	"You're absolutely fabulous! ✨",
	"You have such a beautiful heart! 💝",
	"You're one of a kind! 🦄",
}
