package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"figurachat/internal/models"
)

type emailSection struct {
	Emoji string
	Title string
	Value string
}

type emailPhoto struct {
	Filename string
	DataURI  template.URL
}

type emailData struct {
	UserID   string
	Date     string
	Sections []emailSection
	Photos   []emailPhoto
}

var orderTemplate = template.Must(template.New("order").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Nuevo Pedido Personalizado</title>
<style>
body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
.container { max-width: 600px; margin: 0 auto; background-color: white; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); overflow: hidden; }
.header { background-color: #FF6B6B; color: white; padding: 20px; text-align: center; }
.header h1 { margin: 0; font-size: 24px; }
.content { padding: 30px; }
.order-info { background-color: #f8f9fa; border-left: 4px solid #FF6B6B; padding: 15px; margin-bottom: 25px; }
.section { margin-bottom: 25px; }
.section h3 { color: #FF6B6B; border-bottom: 2px solid #FF6B6B; padding-bottom: 5px; margin-bottom: 15px; }
.footer { background-color: #f8f9fa; padding: 20px; text-align: center; color: #666; font-size: 14px; }
</style>
</head>
<body>
<div class="container">
<div class="header">
<h1>🎯 Nuevo Pedido de Figura Personalizada</h1>
<p>Recibido el {{.Date}}</p>
</div>
<div class="content">
<div class="order-info">
<p><strong>ID del Cliente:</strong> {{.UserID}}</p>
<p><strong>Fecha y Hora:</strong> {{.Date}}</p>
</div>
{{range .Sections}}<div class="section">
<h3>{{.Emoji}} {{.Title}}</h3>
{{if .Value}}<p>{{.Value}}</p>{{else}}<p><em>No especificado</em></p>{{end}}
</div>
{{end}}<div class="section">
<h3>📸 Fotos de Referencia</h3>
{{if .Photos}}<div style="display: flex; flex-wrap: wrap; gap: 10px;">
{{range .Photos}}<div><img src="{{.DataURI}}" alt="{{.Filename}}" style="max-width: 150px; max-height: 150px; border-radius: 8px; border: 2px solid #FF6B6B;"></div>
{{end}}</div>{{else}}<p><em>No se subieron fotos de referencia</em></p>{{end}}
</div>
<div class="order-info">
<h3>⚠️ Próximos Pasos</h3>
<ol>
<li>Revisar los detalles del pedido</li>
<li>Contactar al cliente para confirmar precio</li>
<li>Establecer fecha de entrega</li>
<li>Procesar pago y envío</li>
</ol>
</div>
</div>
<div class="footer">
<p>Este correo fue generado automáticamente por el chat de pedidos</p>
</div>
</div>
</body>
</html>
`))

// RenderOrderHTML produces the email body for a finalized order.
func RenderOrderHTML(order *models.Order, userID string, at time.Time) (string, error) {
	data := emailData{
		UserID: userID,
		Date:   at.Format("02/01/2006 a las 15:04"),
		Sections: []emailSection{
			{"🧠", "CABEZA", order.Head},
			{"👕", "PARTE SUPERIOR DEL CUERPO", order.UpperBody},
			{"👖", "PARTE INFERIOR DEL CUERPO", order.LowerBody},
			{"👟", "PIES", order.Feet},
			{"✨", "DETALLES ADICIONALES", order.ExtraDetails},
		},
	}
	for i, photo := range order.Photos {
		raw := photoBase64(photo.Data)
		if raw == "" {
			continue
		}
		name := photo.Filename
		if name == "" {
			name = fmt.Sprintf("imagen_%d", i+1)
		}
		data.Photos = append(data.Photos, emailPhoto{
			Filename: name,
			DataURI:  template.URL("data:image/jpeg;base64," + raw),
		})
	}

	var b strings.Builder
	if err := orderTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render order email: %w", err)
	}
	return b.String(), nil
}

// photoBase64 strips an optional "data:image/...;base64," header from the
// stored payload.
func photoBase64(data string) string {
	if idx := strings.IndexByte(data, ','); idx >= 0 && strings.HasPrefix(data, "data:") {
		return data[idx+1:]
	}
	return strings.TrimSpace(data)
}
