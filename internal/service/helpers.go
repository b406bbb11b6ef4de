package service

import (
	"strconv"
	"time"
)

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

// parseISOTime accepts RFC 3339 timestamps and the zone-less ISO form; the
// latter is read as UTC.
func parseISOTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", raw)
}

const joinPageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Etkinliğe Katıl - %s</title>
    <style>
        body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
        .container { max-width: 600px; margin: 0 auto; }
        .event-info { background: #f5f5f5; padding: 20px; border-radius: 10px; margin: 20px 0; }
        .join-btn { background: #007bff; color: white; padding: 15px 30px; border: none; border-radius: 5px; font-size: 18px; cursor: pointer; }
        .join-btn:hover { background: #0056b3; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Etkinliğe Katıl</h1>
        <div class="event-info">
            <h2>%s</h2>
            <p><strong>Oluşturan:</strong> %s</p>
            <p><strong>Grup ID:</strong> %s</p>
            <p><strong>Oluşturma Tarihi:</strong> %s</p>
        </div>
        <button class="join-btn" onclick="joinEvent()">Etkinliğe Katıl</button>
        <p><small>Bu sayfayı grupta paylaşabilirsiniz</small></p>
    </div>
    <script>
        function joinEvent() {
            alert('Etkinliğe katıldınız! Grupta devam edin.');
            window.close();
        }
    </script>
</body>
</html>`
