package reconcile

import (
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/metal-toolbox/netsync/internal/store"
)

// optional returns nil for an unset string so it serializes as null.
func optional(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func deviceDesired(d *model.Device) map[string]any {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	customFields := d.CustomFields
	if customFields == nil {
		customFields = map[string]any{}
	}

	return map[string]any{
		"name":          d.Name,
		"status":        d.Status,
		"site":          d.SiteSlug,
		"role":          d.RoleSlug,
		"device_type":   d.DeviceTypeSlug,
		"manufacturer":  d.ManufacturerSlug,
		"serial":        optional(d.Serial),
		"asset_tag":     optional(d.AssetTag),
		"tags":          tags,
		"custom_fields": customFields,
	}
}

func deviceCurrent(r *store.Record) map[string]any {
	role := r.RefString("role", "slug")
	if role == "" {
		role = r.RefString("device_role", "slug")
	}

	manufacturer := ""
	if m, ok := r.Ref("device_type", "manufacturer").(map[string]any); ok {
		manufacturer, _ = m["slug"].(string)
	}

	tags := []string{}

	if list, ok := r.Fields["tags"].([]any); ok {
		for _, tag := range list {
			if t, ok := tag.(map[string]any); ok {
				if slug, ok := t["slug"].(string); ok {
					tags = append(tags, slug)
				}
			}
		}
	}

	return map[string]any{
		"name":          r.String("name"),
		"status":        r.RefString("status", "value"),
		"site":          r.RefString("site", "slug"),
		"role":          role,
		"device_type":   r.RefString("device_type", "slug"),
		"manufacturer":  manufacturer,
		"serial":        optional(r.String("serial")),
		"asset_tag":     optional(r.String("asset_tag")),
		"tags":          tags,
		"custom_fields": r.Fields["custom_fields"],
	}
}

func moduleBayDesired(b *model.ModuleBay) map[string]any {
	label := b.Label
	if label == "" {
		label = b.Name
	}

	return map[string]any{
		"name":     b.Name,
		"label":    label,
		"position": optional(b.Position),
	}
}

func moduleBayCurrent(r *store.Record) map[string]any {
	return map[string]any{
		"name":     r.String("name"),
		"label":    r.String("label"),
		"position": optional(r.String("position")),
	}
}

func moduleDesired(m *model.Module) map[string]any {
	return map[string]any{
		"bay_name":          m.BayName,
		"module_type_model": m.ModuleTypeModel,
		"status":            m.Status,
		"serial":            optional(m.Serial),
	}
}

func moduleCurrent(r *store.Record) map[string]any {
	return map[string]any{
		"bay_name":          r.RefString("module_bay", "name"),
		"module_type_model": r.RefString("module_type", "model"),
		"status":            r.RefString("status", "value"),
		"serial":            optional(r.String("serial")),
	}
}

// moduleIdentifier identifies a module proposal by bay and model.
func moduleIdentifier(m *model.Module) string {
	return m.BayName + ":" + m.ModuleTypeModel
}

func interfaceDesired(i *model.Interface) map[string]any {
	desired := map[string]any{
		"type":        i.TypeSlug,
		"enabled":     i.Enabled,
		"description": optional(i.Description),
	}

	if i.MTU != nil {
		desired["mtu"] = *i.MTU
	}

	if i.Lag != "" {
		desired["lag"] = i.Lag
	}

	return desired
}

func interfaceCurrent(r *store.Record) map[string]any {
	current := map[string]any{
		"type":        r.RefString("type", "value"),
		"enabled":     r.Fields["enabled"],
		"description": optional(r.String("description")),
	}

	if mtu, exists := r.Fields["mtu"]; exists && mtu != nil {
		current["mtu"] = mtu
	}

	if lag := r.RefString("lag", "name"); lag != "" {
		current["lag"] = lag
	}

	return current
}

func lagDesired(members []string) map[string]any {
	return map[string]any{"members": members}
}
