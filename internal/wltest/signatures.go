package wltest

// signature describes one request: its name, argument codes in wire order
// and, for new_id arguments, the interface being created.
//
// Codes: u uint, i int, f fixed, s string, o object, n new_id, a array,
// h fd. The untyped new_id of wl_registry.bind takes its interface from the
// preceding string.
type signature struct {
	name     string
	args     string
	newIface string
}

var requests = map[string][]signature{
	"wl_display": {
		{"sync", "n", "wl_callback"},
		{"get_registry", "n", "wl_registry"},
	},
	"wl_registry": {
		{"bind", "usun", ""},
	},
	"wl_compositor": {
		{"create_surface", "n", "wl_surface"},
		{"create_region", "n", "wl_region"},
	},
	"wl_surface": {
		{"destroy", "", ""},
		{"attach", "oii", ""},
		{"damage", "iiii", ""},
		{"frame", "n", "wl_callback"},
		{"set_opaque_region", "o", ""},
		{"set_input_region", "o", ""},
		{"commit", "", ""},
		{"set_buffer_transform", "i", ""},
		{"set_buffer_scale", "i", ""},
		{"damage_buffer", "iiii", ""},
		{"offset", "ii", ""},
	},
	"wl_shm": {
		{"create_pool", "nhi", "wl_shm_pool"},
		{"release", "", ""},
	},
	"wl_shm_pool": {
		{"create_buffer", "niiiiu", "wl_buffer"},
		{"destroy", "", ""},
		{"resize", "i", ""},
	},
	"wl_buffer": {
		{"destroy", "", ""},
	},
	"wl_seat": {
		{"get_pointer", "n", "wl_pointer"},
		{"get_keyboard", "n", "wl_keyboard"},
		{"get_touch", "n", "wl_touch"},
		{"release", "", ""},
	},
	"wl_pointer": {
		{"set_cursor", "uoii", ""},
		{"release", "", ""},
	},
	"wl_keyboard": {{"release", "", ""}},
	"wl_touch":    {{"release", "", ""}},
	"wl_output":   {{"release", "", ""}},
	"zwlr_layer_shell_v1": {
		{"get_layer_surface", "noous", "zwlr_layer_surface_v1"},
		{"destroy", "", ""},
	},
	"zwlr_layer_surface_v1": {
		{"set_size", "uu", ""},
		{"set_anchor", "u", ""},
		{"set_exclusive_zone", "i", ""},
		{"set_margin", "iiii", ""},
		{"set_keyboard_interactivity", "u", ""},
		{"get_popup", "o", ""},
		{"ack_configure", "u", ""},
		{"destroy", "", ""},
		{"set_layer", "u", ""},
		{"set_exclusive_edge", "u", ""},
	},
	"ext_session_lock_manager_v1": {
		{"destroy", "", ""},
		{"lock", "n", "ext_session_lock_v1"},
	},
	"ext_session_lock_v1": {
		{"destroy", "", ""},
		{"get_lock_surface", "noo", "ext_session_lock_surface_v1"},
		{"unlock_and_destroy", "", ""},
	},
	"ext_session_lock_surface_v1": {
		{"destroy", "", ""},
		{"ack_configure", "u", ""},
	},
	"zxdg_output_manager_v1": {
		{"destroy", "", ""},
		{"get_xdg_output", "no", "zxdg_output_v1"},
	},
	"zxdg_output_v1": {
		{"destroy", "", ""},
	},
	"xdg_wm_base": {
		{"destroy", "", ""},
		{"create_positioner", "n", "xdg_positioner"},
		{"get_xdg_surface", "no", "xdg_surface"},
		{"pong", "u", ""},
	},
	"xdg_positioner": {
		{"destroy", "", ""},
		{"set_size", "ii", ""},
		{"set_anchor_rect", "iiii", ""},
		{"set_anchor", "u", ""},
		{"set_gravity", "u", ""},
		{"set_constraint_adjustment", "u", ""},
		{"set_offset", "ii", ""},
		{"set_reactive", "", ""},
		{"set_parent_size", "ii", ""},
		{"set_parent_configure", "u", ""},
	},
	"xdg_surface": {
		{"destroy", "", ""},
		{"get_toplevel", "n", "xdg_toplevel"},
		{"get_popup", "noo", "xdg_popup"},
		{"set_window_geometry", "iiii", ""},
		{"ack_configure", "u", ""},
	},
	"xdg_popup": {
		{"destroy", "", ""},
		{"grab", "ou", ""},
		{"reposition", "ou", ""},
	},
	"wp_fractional_scale_manager_v1": {
		{"destroy", "", ""},
		{"get_fractional_scale", "no", "wp_fractional_scale_v1"},
	},
	"wp_fractional_scale_v1": {
		{"destroy", "", ""},
	},
	"wp_cursor_shape_manager_v1": {
		{"destroy", "", ""},
		{"get_pointer", "no", "wp_cursor_shape_device_v1"},
		{"get_tablet_tool_v2", "no", "wp_cursor_shape_device_v1"},
	},
	"wp_cursor_shape_device_v1": {
		{"destroy", "", ""},
		{"set_shape", "uu", ""},
	},
	"wp_viewporter": {
		{"destroy", "", ""},
		{"get_viewport", "no", "wp_viewport"},
	},
	"wp_viewport": {
		{"destroy", "", ""},
		{"set_source", "ffff", ""},
		{"set_destination", "ii", ""},
	},
	"zwp_virtual_keyboard_manager_v1": {
		{"create_virtual_keyboard", "on", "zwp_virtual_keyboard_v1"},
	},
	"zwp_virtual_keyboard_v1": {
		{"keymap", "uhu", ""},
		{"key", "uuu", ""},
		{"modifiers", "uuuu", ""},
		{"destroy", "", ""},
	},
}

// destructors are requests after which the compositor confirms with
// delete_id.
var destructors = map[string]bool{
	"destroy":            true,
	"release":            true,
	"unlock_and_destroy": true,
}
